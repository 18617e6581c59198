package main

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// config is the proof server's environment-derived configuration,
// grounded on the teacher's cmd/auctiond/config.go load/default/validate
// shape but reading from the environment variables spec.md §6 names
// instead of a JSON file, since those are this server's actual contract.
type config struct {
	QueueCapacity int
	BindAddr      string
	ParamsDir     string
	WorkDir       string
	Network       string
	RPCURL        string
}

const defaultQueueCapacity = 10

// loadConfig reads PROOF_QUEUE_CAP, PORT/HOST/SOCKET_ADDR, and ENV_FILE
// per spec.md §6, applying the teacher's default-then-override pattern.
func loadConfig() config {
	applyEnvFile(os.Getenv("ENV_FILE"))

	cfg := config{
		QueueCapacity: defaultQueueCapacity,
		BindAddr:      "127.0.0.1:8080",
		ParamsDir:     defaultWalletDir(),
		WorkDir:       os.TempDir(),
		Network:       "anvil",
		RPCURL:        "http://127.0.0.1:8545",
	}

	if v := os.Getenv("PROOF_QUEUE_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueCapacity = n
		}
	}

	if addr := os.Getenv("SOCKET_ADDR"); addr != "" {
		cfg.BindAddr = addr
	} else {
		host := os.Getenv("HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		cfg.BindAddr = host + ":" + port
	}

	if rpcURL := os.Getenv("WORM_RPC_URL"); rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	if network := os.Getenv("WORM_NETWORK"); network != "" {
		cfg.Network = network
	}

	return cfg
}

// defaultWalletDir is $HOME/.worm-miner, spec.md §6's filesystem layout.
func defaultWalletDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".worm-miner"
	}
	return home + string(os.PathSeparator) + ".worm-miner"
}

// applyEnvFile loads simple KEY=VALUE lines from path into the process
// environment, skipping blank lines and '#' comments, without overriding
// variables already set. Absence of the file (or an empty ENV_FILE) is
// not an error.
func applyEnvFile(path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, strings.TrimSpace(value))
	}
}
