package main

import (
	"LifeLink/internal/bootstrap"
	pkg "LifeLink/pkg/routes"

	"go.uber.org/fx"
)

func main() {
	bootstrap.Loadenv()

	app := fx.New(
		pkg.EchoModules,
	)

	app.Run()
}
