package main

import (
	"flag"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "cmd/catalog-mock/testdata/catalog.yaml", "path to the YAML fixture")
		verbose = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})

	c, err := loadFixture(*data)
	if err != nil {
		logger.WithError(err).Fatal("catalog-mock: load fixture")
	}

	handler := c.routes()
	if *verbose {
		handler = middleware.Logger(handler)
	}

	addr := ":" + *port
	logger.WithFields(logrus.Fields{
		"addr":    addr,
		"movies":  len(c.movies),
		"persons": len(c.persons),
	}).Info("catalog-mock: listening, point TMDB_API_URL at http://localhost" + addr + "/3")
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		logger.WithError(err).Fatal("catalog-mock: server error")
	}
}
