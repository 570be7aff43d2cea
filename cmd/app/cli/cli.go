package cli

import (
	"context"

	"go.uber.org/fx"

	"exusiai.dev/crm-backup/internal/app"
	"exusiai.dev/crm-backup/internal/app/appcontext"
)

// Start builds and starts a CLI-scoped fx app; module typically carries an fx.Populate.
func Start(module fx.Option) *fx.App {
	a := app.New(appcontext.Declare(appcontext.EnvCLI), module)
	if err := a.Start(context.Background()); err != nil {
		panic(err)
	}
	return a
}

// DepsFn returns a function that lazily boots the app and populates a T.
// The returned stop function shuts the app down.
func DepsFn[T any]() func() (T, func()) {
	return func() (T, func()) {
		var deps T
		a := Start(fx.Populate(&deps))
		return deps, func() {
			_ = a.Stop(context.Background())
		}
	}
}
