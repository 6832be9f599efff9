package kajabi

import (
	"go.uber.org/fx"
)

var Module = fx.Module("kajabi.engine",
	fx.Provide(NewEngine),
)

var TaskModule = fx.Module("task.kajabi",
	fx.Provide(NewTask),
	fx.Invoke(RegisterTaskHandlers),
)
