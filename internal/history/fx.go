package history

import (
	"github.com/clipsmithlabs/clipsmith/internal/history/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("history",
	fx.Provide(repository.Provide),
)
