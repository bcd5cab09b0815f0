package main

import (
	"log"

	"github.com/kindredkids/compass/api/echo"
	"github.com/kindredkids/compass/core"
	"github.com/kindredkids/compass/core/auth"
	"github.com/kindredkids/compass/core/profile"
	emailsvc "github.com/kindredkids/compass/services/email"
	logsvc "github.com/kindredkids/compass/services/logger"
	notifysvc "github.com/kindredkids/compass/services/notify"
	smssvc "github.com/kindredkids/compass/services/sms"
	"github.com/kindredkids/compass/storage/supabase"
)

func main() {
	conf := core.NewConfig()
	if conf.Supabase.URL == "" || conf.Supabase.ServiceRoleKey == "" {
		log.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	zlog, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	var logger core.Logger = zlog
	if conf.RollbarToken != "" {
		rlog := logsvc.NewRollbarLogger(zlog, conf)
		rlog.Enable(!conf.Debug)
		logger = rlog
	}

	store := supabase.NewClient(conf.Supabase)
	keys := auth.NewKeyCache(conf.Supabase.URL, conf.Supabase.JWTCacheTTL)
	verifier := auth.NewVerifier(keys, conf.Supabase.JWTAudience)
	profiles := profile.NewService(store)

	var mailSvc core.EmailService
	switch {
	case conf.Mail.SendgridAPIKey != "":
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	case conf.Mail.Host != "":
		mailSvc = emailsvc.NewSMTPService(conf, logger)
	case conf.Debug:
		mailSvc = emailsvc.NewConsoleService(conf)
	default:
		mailSvc = emailsvc.NewDummyService()
	}

	app := echoapi.NewServer(&echoapi.Options{
		Address:  conf.Address,
		Conf:     conf,
		Store:    store,
		Verifier: verifier,
		Profiles: profiles,
		Notifier: notifysvc.NewNotifier(conf, store, mailSvc, logger),
		SMS:      smssvc.NewProviderService(conf, logger),
		Logger:   logger,
	})

	logger.Info("starting api server", "addr", conf.Address, "env", conf.Env)
	app.Start()
}
