package transaction

import (
	"github.com/smallbiznis/restobill/internal/transaction/repository"
	"github.com/smallbiznis/restobill/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
