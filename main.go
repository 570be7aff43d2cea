package main

import (
	"exusiai.dev/crm-backup/cmd/app"
)

func main() {
	app.Run()
}
