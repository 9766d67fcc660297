package fhevm

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects how a Bootstrapper picks its strategy.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeRelayer Mode = "relayer"
	ModeMock    Mode = "mock"
)

// ParseMode accepts "auto", "relayer" (or "real") and "mock". An empty
// string is auto.
func ParseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeAuto):
		return ModeAuto, nil
	case string(ModeRelayer), "real":
		return ModeRelayer, nil
	case string(ModeMock):
		return ModeMock, nil
	default:
		return "", fmt.Errorf("fhevm: unsupported runtime mode %q", raw)
	}
}

// Strategy is either RealSDKStrategy or MockStrategy.
type Strategy interface {
	Mode() Mode
	Creator() *Creator
	isStrategy()
}

// RealSDKStrategy bootstraps through the SDK sources.
type RealSDKStrategy struct {
	creator *Creator
}

func (s RealSDKStrategy) Mode() Mode        { return ModeRelayer }
func (s RealSDKStrategy) Creator() *Creator { return s.creator }
func (RealSDKStrategy) isStrategy()         {}

// MockStrategy bootstraps the mock SDK. Reason says why it was chosen.
type MockStrategy struct {
	creator *Creator
	Reason  string
}

func (s MockStrategy) Mode() Mode        { return ModeMock }
func (s MockStrategy) Creator() *Creator { return s.creator }
func (MockStrategy) isStrategy()         {}

// SelectStrategy picks the strategy for cfg. In auto mode mock chains get
// the mock, other chains get the real SDK when it can be probed, and the
// mock otherwise. Cancellation is reported as an abort and never falls back.
func (b *Bootstrapper) SelectStrategy(ctx context.Context, cfg Config) (Strategy, Config, error) {
	switch b.mode {
	case ModeMock:
		return MockStrategy{creator: b.mock, Reason: "mock mode"}, cfg, nil
	case ModeRelayer:
		return RealSDKStrategy{creator: b.real}, cfg, nil
	}

	chainID, err := resolveChainID(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}
	cfg.ChainID = chainID
	if b.mockChains.Contains(chainID) {
		return MockStrategy{creator: b.mock, Reason: fmt.Sprintf("chain %d is a mock chain", chainID)}, cfg, nil
	}

	if err := b.real.Loader().Probe(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, cfg, aborted(ctx, "sdk.probe")
		}
		b.log.Warn("real SDK unavailable, using the mock: %v", err)
		return MockStrategy{creator: b.mock, Reason: "SDK unavailable: " + err.Error()}, cfg, nil
	}
	return RealSDKStrategy{creator: b.real}, cfg, nil
}
