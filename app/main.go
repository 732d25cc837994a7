package main

import "github.com/taules/taules/app/cmd"

func main() {
	cmd.Execute()
}

// @title Taules API
// @version 0.0.1
// @description Mobile-style data tables over pluggable storage backends

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @securityDefinitions.basic BasicAuth
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @BasePath /
