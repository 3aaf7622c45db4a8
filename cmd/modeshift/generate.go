package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/modeshift-ai/modeshift/pkg/audit"
	"github.com/modeshift-ai/modeshift/pkg/budget"
	"github.com/modeshift-ai/modeshift/pkg/cache"
	cacheredis "github.com/modeshift-ai/modeshift/pkg/cache/redis"
	cachesqlite "github.com/modeshift-ai/modeshift/pkg/cache/sqlite"
	"github.com/modeshift-ai/modeshift/pkg/config"
	"github.com/modeshift-ai/modeshift/pkg/engine"
	"github.com/modeshift-ai/modeshift/pkg/logging"
	"github.com/modeshift-ai/modeshift/pkg/models"
	"github.com/modeshift-ai/modeshift/pkg/tracker"
	"github.com/redis/go-redis/v9"
)

func newGenerateCmd() *cobra.Command {
	var (
		configPath   string
		purpose      string
		prompt       string
		templateStr  string
		vars         []string
		system       string
		providerName string
		model        string
		schemaKind   string
		criteriaPath string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation call and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			if prompt == "-" {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read prompt from stdin: %w", err)
				}
				prompt = string(data)
			}

			req := models.GenerationRequest{
				Purpose:  models.Purpose(purpose),
				Prompt:   prompt,
				Template: templateStr,
				System:   system,
				Provider: providerName,
				Model:    model,
			}

			if len(vars) > 0 {
				req.Variables = make(map[string]string, len(vars))
				for _, kv := range vars {
					k, v, ok := strings.Cut(kv, "=")
					if !ok {
						return fmt.Errorf("invalid --var %q, expected key=value", kv)
					}
					req.Variables[k] = v
				}
			}

			req.Schema, err = buildSchema(schemaKind, criteriaPath)
			if err != nil {
				return err
			}

			result, err := eng.Generate(context.Background(), req)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "modeshift.yaml", "path to config file")
	cmd.Flags().StringVar(&purpose, "purpose", string(models.PurposeProjectScoring), "generation purpose")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "prompt text, or - to read stdin")
	cmd.Flags().StringVar(&templateStr, "template", "", "prompt template with {{placeholders}}")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "template variable, key=value (repeatable)")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().StringVar(&providerName, "provider", "", "provider override")
	cmd.Flags().StringVar(&model, "model", "", "model override")
	cmd.Flags().StringVar(&schemaKind, "schema", "", "expected output: scores, sentiment, themes, or json")
	cmd.Flags().StringVar(&criteriaPath, "criteria", "", "YAML file listing scoring criteria (with --schema scores)")

	return cmd
}

func buildSchema(kind, criteriaPath string) (*models.Schema, error) {
	switch kind {
	case "":
		return nil, nil
	case "sentiment":
		return models.SentimentSchema(), nil
	case "themes":
		return models.ThemesSchema(), nil
	case "json":
		return models.FreeformJSONSchema(), nil
	case "scores":
		if criteriaPath == "" {
			return nil, fmt.Errorf("--schema scores requires --criteria")
		}
		data, err := os.ReadFile(criteriaPath)
		if err != nil {
			return nil, fmt.Errorf("read criteria: %w", err)
		}
		var criteria []models.CriterionSpec
		if err := yaml.Unmarshal(data, &criteria); err != nil {
			return nil, fmt.Errorf("parse criteria: %w", err)
		}
		if len(criteria) == 0 {
			return nil, fmt.Errorf("criteria file %s is empty", criteriaPath)
		}
		return models.CriterionScoresSchema(criteria...), nil
	default:
		return nil, fmt.Errorf("unknown schema %q", kind)
	}
}

// buildEngine wires the full engine from configuration: cache store, usage
// tracker, audit logger, and budget enforcer as configured.
func buildEngine(cfg *config.Config) (*engine.Engine, error) {
	log := logging.New(cfg.Logging.Level, cfg.Logging.JSON)

	opts := engine.Options{Logger: log}

	if cfg.Cache.Enabled {
		store, err := openStore(cfg)
		if err != nil {
			return nil, err
		}
		opts.Store = store
	}

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	opts.Tracker = tr

	if cfg.Audit.Enabled {
		a, err := audit.New(cfg.Audit)
		if err != nil {
			return nil, err
		}
		opts.Audit = a
	}

	if cfg.Budget.Enabled {
		opts.Budget = budget.New(cfg.Budget.Policies, tr)
	}

	return engine.New(cfg, opts)
}

func openStore(cfg *config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "", "sqlite":
		return cachesqlite.New(cfg.DBPath, cfg.Cache.TTL)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return cacheredis.New(client, cfg.Cache.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
