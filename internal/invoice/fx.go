package invoice

import (
	"github.com/smallbiznis/restobill/internal/invoice/numbering"
	"github.com/smallbiznis/restobill/internal/invoice/render"
	"github.com/smallbiznis/restobill/internal/invoice/repository"
	"github.com/smallbiznis/restobill/internal/invoice/service"
	"github.com/smallbiznis/restobill/internal/tax"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	tax.Module,
	fx.Provide(repository.Provide),
	fx.Provide(numbering.NewAllocator),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
	fx.Provide(service.NewSettler),
)
