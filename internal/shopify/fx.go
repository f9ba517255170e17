package shopify

import "go.uber.org/fx"

var Module = fx.Module("shopify.client",
	fx.Provide(New),
)
