package badge

import (
	"go.uber.org/fx"
)

var Module = fx.Module("badge.engine",
	fx.Provide(NewEngine),
)
