package main

import (
	"flag"

	"github.com/prometheus/client_golang/prometheus"

	"sispay/config"
	"sispay/internal"
	"sispay/services"
)

func main() {

	logger := internal.NewLogger("boot", false, nil)

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	logger.Info("using config file: " + *configPath)
	conf, err := config.GetConfig(*configPath)
	if err != nil {
		logger.Error("boot", err)
		return
	}

	var mongo services.Database
	if conf.Mongo.Enabled {
		mongo, err = internal.NewMongoClient(conf)
		if err != nil {
			logger.Error("mongo client", err)
			return
		}
		logger.Info("mongo client initialized")
	}

	orders := internal.NewOrderWebhook(conf.Orders.WebhookURL)

	metrics := internal.NewMetrics(prometheus.DefaultRegisterer)

	payments := internal.NewPayments(conf)
	payments.SetLogger(internal.NewLogger("payments", conf.IsDebug, mongo))
	payments.SetDatabase(mongo)
	payments.SetOrderSystem(orders)
	payments.SetMetrics(metrics)

	server := internal.NewServer(conf)
	server.SetLogger(internal.NewLogger("server", conf.IsDebug, mongo))
	server.SetPaymentsService(payments)

	err = server.Start()
	if err != nil {
		logger.Error("server start", err)
		return
	}

}
