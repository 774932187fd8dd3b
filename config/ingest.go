package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
)

// Ingest copies keys from the dotenv files in the ingest directory into
// the store. Existing keys are kept unless force is set. Missing files are
// skipped.
func (s *Store) Ingest(ctx context.Context, force bool) (IngestResult, error) {
	res := IngestResult{Env: map[string]int{}}

	globalPath := filepath.Join(s.ingestDir, GlobalEnvFile)
	values, err := readDotenv(globalPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("global dotenv file not found", "path", globalPath)
	case err != nil:
		return res, err
	default:
		for _, k := range sortedKeys(values) {
			if !force {
				if _, ok, err := s.Global(ctx, k); err != nil {
					return res, err
				} else if ok {
					continue
				}
			}
			if err := s.SetGlobal(ctx, k, values[k]); err != nil {
				return res, err
			}
			res.Global++
		}
		s.logger.Info("global keys ingested", "path", globalPath, "count", res.Global)
	}

	for _, env := range Environments() {
		path := filepath.Join(s.ingestDir, EnvFiles[env])
		values, err := readDotenv(path)
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("env file not found", "env", env, "path", path)
			continue
		}
		if err != nil {
			return res, err
		}

		count := 0
		for _, k := range sortedKeys(values) {
			if !force {
				if _, ok, err := s.Env(ctx, env, k); err != nil {
					return res, err
				} else if ok {
					continue
				}
			}
			if err := s.SetEnv(ctx, env, k, values[k]); err != nil {
				return res, err
			}
			count++
		}
		res.Env[env] = count
		s.logger.Info("env keys ingested", "env", env, "path", path, "count", count)
	}
	return res, nil
}

func readDotenv(path string) (map[string]string, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
