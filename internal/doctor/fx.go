package doctor

import "go.uber.org/fx"

var Module = fx.Module("doctor",
	fx.Provide(New),
)
