// Package container is the component store of the IoC container: a
// key-indexed map of live instances, each assigned to one initialization
// tier.
//
// # Overview
//
// The store does not build anything. Instances are created elsewhere (the
// factory package, or module initializers) and handed over with Register.
// A key can be registered once; a second registration fails with a
// *DuplicateKeyError and leaves the first in place.
//
// # Tiers
//
// Components are initialized tier by tier, in the order of Tiers:
//
//  1. DataAccess    repositories, storage, connections
//  2. BusinessLogic services
//  3. Presentation  controllers, routers
//  4. Default       everything else
//
// ByTier returns a tier's components in registration order.
//
// # Keys and aliases
//
//	store := container.New()
//	_ = store.Register(container.TypeKey((*Repo)(nil)), repo, container.DataAccess)
//	_ = store.Alias(container.TypeKey((*Repo)(nil)), container.TypeKey((*Finder)(nil)))
//
//	// Generic lookup, through the alias
//	finder, ok := container.Resolve[Finder](store, container.TypeKey((*Finder)(nil)))
//
// Aliases share the primary entry's instance and tier; they are not listed
// by ByTier or Entries.
//
// # Hooks
//
//	store.OnRegister(func(e container.Entry) { registrations.Inc() })
package container
