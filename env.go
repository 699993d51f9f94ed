// FILE: env.go
// Package main – Environment helpers and safe .env loading for the grid engine.
//
// This file provides:
//   1) Small helpers to read environment variables with sane defaults
//      (strings, ints, floats, bools).
//   2) A dependency-free .env loader (loadBotEnv) that reads ./.env (and
//      ../.env) and injects ONLY the keys the Go process needs into the
//      process environment. Credential material beyond the opaque API
//      key/secret pair (e.g. venue-specific PEMs for JWT-signing transports)
//      is never read here; that's the transport module's concern, not the
//      core's (spec.md §1/§6).
//
// Run with `go run .`; no shell exports required.
package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// --------- Env helpers (used across files) ---------

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
func getEnvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
func getEnvBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "y", "yes":
		return true
	case "0", "false", "n", "no":
		return false
	case "":
		return def
	default:
		return def
	}
}
func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --------- Lightweight .env loader (no external deps) ---------

// loadBotEnv reads .env from "." and ".." and sets ONLY the keys the Go
// process needs. It won't override variables already in the environment.
func loadBotEnv() {
	needed := map[string]struct{}{
		"SYMBOL": {}, "REST_BASE_URL": {}, "WS_URL": {}, "API_KEY": {}, "API_SECRET": {},
		"TICK_SIZE": {}, "LOT_SIZE": {},
		"TICK_PERIOD_S": {}, "GRID_LEVELS_N": {}, "LEVELS_BELOW": {}, "LEVELS_ABOVE": {},
		"ATR_MULTIPLIER": {}, "MIN_SPACING_PCT": {}, "NOTIONAL_FRACTION": {},
		"RESET_TICKS_ABOVE_TOP": {}, "REGIME_ADX_THRESHOLD": {}, "REGIME_RSI_UPPER": {}, "REGIME_RSI_LOWER": {},
		"MIN_NOTIONAL_USD": {}, "DRY_RUN": {}, "PORT": {},
	}
	try := func(path string) {
		f, err := os.Open(path)
		if err != nil {
			return
		}
		defer f.Close()
		s := bufio.NewScanner(f)
		for s.Scan() {
			line := strings.TrimSpace(s.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if strings.HasPrefix(line, "export ") {
				line = strings.TrimSpace(line[len("export "):])
			}
			eq := strings.Index(line, "=")
			if eq <= 0 {
				continue
			}
			key := strings.TrimSpace(line[:eq])
			if _, ok := needed[key]; !ok {
				continue // ignore anything the process doesn't consume
			}
			val := strings.TrimSpace(line[eq+1:])
			if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
				val = val[1 : len(val)-1]
			}
			if idx := strings.IndexAny(val, "#"); idx >= 0 {
				val = strings.TrimSpace(val[:idx])
			}
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, val)
			}
		}
	}
	for _, base := range []string{".", ".."} {
		try(filepath.Join(base, ".env"))
	}
}
