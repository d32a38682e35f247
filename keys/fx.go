package keys

import "go.uber.org/fx"

var Module = fx.Provide(
	NewManager,
)
