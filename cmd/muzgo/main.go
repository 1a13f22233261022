package main

import (
	"flag"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/gorgonia/muzgo"
	"github.com/gorgonia/muzgo/model"
)

type runConfig struct {
	muzgo.Config `yaml:",inline"`

	Model string `yaml:"model"` // dummy, linear or dual
	Stats string `yaml:"stats"` // CSV path, empty to skip
}

func defaultConfig() runConfig {
	return runConfig{
		Config: muzgo.Config{
			Name:          "muzgo",
			BoardSize:     5,
			BatchSize:     32,
			TrajLength:    26,
			MaxHypoSteps:  2,
			Iterations:    100,
			EmbedDim:      64,
			Filters:       32,
			ChunkSize:     16,
			Temperature:   1,
			PerturbStddev: 0.05,
		},
		Model: "linear",
	}
}

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		seed       = flag.Int64("seed", 0, "override the config seed")
		debug      = flag.Bool("debug", false, "log at debug level")
	)
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	conf := defaultConfig()
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("reading config")
		}
		if err := yaml.Unmarshal(raw, &conf); err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("parsing config")
		}
	}
	if *seed != 0 {
		conf.Seed = *seed
	}

	m, err := buildModel(conf)
	if err != nil {
		logger.Fatal().Err(err).Str("model", conf.Model).Msg("building model")
	}

	trainer, err := muzgo.New(conf.Config, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("building trainer")
	}
	if err := trainer.Learn(); err != nil {
		logger.Fatal().Err(err).Msg("training")
	}

	if conf.Stats != "" {
		if err := trainer.Dump(conf.Stats); err != nil {
			logger.Fatal().Err(err).Str("path", conf.Stats).Msg("writing statistics")
		}
		logger.Info().Str("path", conf.Stats).Msg("statistics written")
	}
}

func buildModel(conf runConfig) (model.Model, error) {
	switch conf.Model {
	case "dummy":
		return model.NewDummy(conf.BoardSize), nil
	case "linear":
		return model.NewLinear(conf.BoardSize, conf.EmbedDim, conf.Seed), nil
	case "dual":
		return model.NewDual(model.DualConfig{
			BoardSize: conf.BoardSize,
			EmbedDim:  conf.EmbedDim,
			Filters:   conf.Filters,
			ChunkSize: conf.ChunkSize,
		})
	default:
		return model.Model{}, errors.Errorf("unknown model kind %q", conf.Model)
	}
}
