package main

import (
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/anicoll/nest-integration/cmd"
)

func main() {
	app := &cli.App{
		Name:   "nest-controller",
		Usage:  "polls Nest thermostats and publishes their temperatures",
		Action: cmd.NestCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "nest-username",
				EnvVars: []string{"NEST_USERNAME"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "nest-password",
				EnvVars: []string{"NEST_PASSWORD"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "nest-login-url",
				EnvVars: []string{"NEST_LOGIN_URL"},
				Value:   "https://home.nest.com/user/login",
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				EnvVars: []string{"POLL_INTERVAL"},
				Value:   300 * time.Second,
			},
			&cli.StringFlag{
				Name:    "mqtt-host",
				EnvVars: []string{"MQTT_HOST"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-pass",
				EnvVars: []string{"MQTT_PASS"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "mqtt-user",
				EnvVars: []string{"MQTT_USER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "database-url",
				EnvVars: []string{"DATABASE_URL"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "migrations-folder",
				EnvVars: []string{"MIGRATIONS_FOLDER"},
				Value:   "",
			},
			&cli.StringFlag{
				Name:    "http-addr",
				EnvVars: []string{"HTTP_ADDR"},
				Value:   "0.0.0.0:8000",
			},
			&cli.StringFlag{
				Name:    "log-level",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "INFO",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
