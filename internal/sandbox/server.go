// Package sandbox is a local stand-in for the services an FHEVM client
// talks to: an SDK manifest CDN, a JSON-RPC node, the relayer and a
// chainstore key-value API. It backs cmd/fhevm-sandbox and end-to-end tests.
package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/fhecounter/fhevm_sdk_go/internal/devseed"
	"github.com/fhecounter/fhevm_sdk_go/internal/logging"
	"github.com/fhecounter/fhevm_sdk_go/pkg/pubkey"
	"github.com/fhecounter/fhevm_sdk_go/pkg/relayer"
	"github.com/fhecounter/fhevm_sdk_go/pkg/sdk"
)

// ManifestPath is where the sandbox serves its SDK manifest.
const ManifestPath = "/sdk/manifest.json"

// Config configures a Server.
type Config struct {
	// ChainID is reported by eth_chainId and stamped into handles.
	ChainID uint64
	// Network is advertised in the manifest. The zero value selects
	// sdk.DefaultSepoliaConfig.
	Network sdk.NetworkConfig
	Params  relayer.ParamsSpec
	Latency time.Duration
	Fail    FailConfig
	// KeySeed pre-populates the chainstore public key hash.
	KeySeed []devseed.KeySeedEntry
	Logger  *logging.Logger
}

// Server holds the sandbox state. It is safe for concurrent use.
type Server struct {
	cfg    Config
	log    *logging.Logger
	scheme *relayer.Scheme
	keys   *relayer.KeyPair
	pubKey string
	crs    map[string]relayer.KeyData
	router *gin.Engine

	mu     sync.Mutex
	values map[string]uint64
	hashes map[string]map[string]string
}

// New generates a relayer key pair and builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.ChainID == 0 {
		cfg.ChainID = 31337
	}
	if cfg.Params.IsZero() {
		cfg.Params = relayer.DefaultParams()
	}
	if cfg.Network.ACLContractAddress == (common.Address{}) {
		cfg.Network = sdk.DefaultSepoliaConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Discard()
	}

	scheme, err := relayer.NewScheme(cfg.Params)
	if err != nil {
		return nil, err
	}
	keys := scheme.GenerateKeyPair()
	pk, err := relayer.EncodePublicKey(keys.PublicKey())
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		log:    log,
		scheme: scheme,
		keys:   keys,
		pubKey: pk,
		crs:    map[string]relayer.KeyData{},
		values: map[string]uint64{},
		hashes: map[string]map[string]string{},
	}
	for _, bits := range []int{relayer.DefaultPublicParamsBits} {
		data, err := newCRS(bits)
		if err != nil {
			return nil, err
		}
		s.crs[fmt.Sprint(bits)] = relayer.KeyData{DataID: fmt.Sprintf("crs-%d", bits), Data: data}
	}
	if err := s.seedKeys(cfg.KeySeed); err != nil {
		return nil, err
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the HTTP handler serving every sandbox route.
func (s *Server) Handler() http.Handler { return s.router }

// PublicKey returns the base64 relayer public key.
func (s *Server) PublicKey() string { return s.pubKey }

// ChainID returns the chain id the sandbox reports.
func (s *Server) ChainID() uint64 { return s.cfg.ChainID }

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.log), inject(s.cfg.Latency, s.cfg.Fail))

	r.GET(ManifestPath, s.handleManifest)
	r.POST("/rpc", s.handleRPC)

	v1 := r.Group("/v1")
	v1.GET("/keyurl", s.handleKeyURL)
	v1.POST("/input-proof", s.handleInputProof)
	v1.POST("/public-decrypt", s.handlePublicDecrypt)

	r.POST("/hset", s.handleHSet)
	r.GET("/hget", s.handleHGet)
	r.GET("/hgetall", s.handleHGetAll)
	return r
}

// Manifest builds the manifest advertised for a sandbox reachable at
// baseURL.
func (s *Server) Manifest(baseURL string) (sdk.Manifest, error) {
	opts, err := json.Marshal(relayer.Options{RelayerURL: baseURL, Params: &s.cfg.Params})
	if err != nil {
		return sdk.Manifest{}, err
	}
	network := s.cfg.Network
	network.RelayerURL = baseURL
	initialized := false
	return sdk.Manifest{
		Name:          "relayer-sdk",
		Version:       "0.1.2-sandbox",
		Driver:        relayer.DriverName,
		SepoliaConfig: network,
		Initialized:   &initialized,
		Options:       opts,
	}, nil
}

func (s *Server) handleManifest(c *gin.Context) {
	m, err := s.Manifest(baseURL(c.Request))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) seedKeys(entries []devseed.KeySeedEntry) error {
	for _, e := range entries {
		addr, err := pubkey.NormalizeAddress(e.Address)
		if err != nil {
			return fmt.Errorf("sandbox: key seed: %w", err)
		}
		rec := pubkey.Record{Address: addr, PublicKey: e.PublicKey, PublicParams: e.PublicParams, Timestamp: time.Now().UnixMilli()}
		if e.Timestamp != nil {
			rec.Timestamp = *e.Timestamp
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		s.hset(pubkey.HashKey, addr, string(raw))
	}
	return nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
