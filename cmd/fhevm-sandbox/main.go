package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/fhecounter/fhevm_sdk_go/internal/devseed"
	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/internal/sandbox"
	"github.com/fhecounter/fhevm_sdk_go/pkg/provider"
)

func main() {
	addr := flag.String("addr", ":8787", "listen address")
	chainID := flag.Uint64("chain-id", provider.SepoliaChainID, "chain id reported over JSON-RPC and stamped into handles")
	keySeed := flag.String("key-seed", "", "path to JSON seed for the chainstore public key hash")
	latency := flag.Duration("latency", 0, "artificial latency to inject per request")
	fail := flag.String("fail", "", "failure injection (rate=<float>,code=<httpStatus>)")
	flag.Parse()

	failCfg, err := sandbox.ParseFailConfig(*fail)
	if err != nil {
		log.Fatalf("parse fail flag: %v", err)
	}

	var seed []devseed.KeySeedEntry
	if *keySeed != "" {
		seed, err = devseed.LoadKeySeed(*keySeed)
		if err != nil {
			log.Fatalf("load key seed: %v", err)
		}
	}

	srv, err := sandbox.New(sandbox.Config{
		ChainID: *chainID,
		Latency: *latency,
		Fail:    failCfg,
		KeySeed: seed,
		Logger:  logging.FromEnv("sandbox"),
	})
	if err != nil {
		log.Fatalf("init sandbox: %v", err)
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: srv.Handler(),
	}

	log.Printf("fhevm-sandbox listening on %s (chain %d)", *addr, *chainID)
	host := *addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	base := "http://" + host
	fmt.Println()
	fmt.Println("export FHEVM_RUNTIME_MODE=auto")
	fmt.Printf("export FHEVM_SDK_URLS=%s%s\n", base, sandbox.ManifestPath)
	fmt.Println("export FHEVM_KEYCACHE_MODE=http")
	fmt.Printf("export FHEVM_KEYCACHE_URL=%s\n", base)
	fmt.Printf("export FHEVM_RPC_URL=%s/rpc\n", base)
	if provider.DefaultMockChains().Contains(*chainID) {
		fmt.Printf("# chain %d is served by the mock in auto mode; use FHEVM_RUNTIME_MODE=relayer to hit the sandbox relayer\n", *chainID)
	}
	fmt.Println()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
