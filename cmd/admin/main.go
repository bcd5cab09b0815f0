// The admin command bootstraps tenants and users directly against the managed
// platform, bypassing the HTTP API.
package main

import (
	"log"
	"os"

	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/storage/supabase"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	if conf.Supabase.URL == "" || conf.Supabase.ServiceRoleKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	cli := commandLine{
		conf:  conf,
		store: supabase.NewClient(conf.Supabase),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
