package launcher

import "go.uber.org/fx"

var Module = fx.Module("launcher",
	fx.Provide(New),
)
