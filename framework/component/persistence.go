package component

import "github.com/km-arc/go-ioc/framework/container"

// PersistenceModule is the narrow contract of an external persistence
// bridge. A module initializer registers one under PersistenceModuleKey.
type PersistenceModule interface {
	Initialized() bool
}

// PersistenceModuleKey is the store key entity checks look up.
var PersistenceModuleKey = container.TypeKey((*PersistenceModule)(nil))

// PersistencePropertyPrefix is the property prefix persistence modules read
// their configuration from.
const PersistencePropertyPrefix = "persistence."
