package appcontext

const (
	EnvServer Env = iota
	EnvWorker
	EnvCLI
)

type Env int

type Ctx struct {
	Env Env
}

func Declare(env Env) Ctx {
	return Ctx{
		Env: env,
	}
}

// Serving reports whether the process runs long-lived components (HTTP server, workers).
func (c Ctx) Serving() bool {
	return c.Env == EnvServer || c.Env == EnvWorker
}
