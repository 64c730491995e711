// internal/scenario/scenario.go
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/launchpad-curve/internal/curve"
)

// Action is the kind of a scenario step.
type Action string

const (
	ActionAirdrop    Action = "airdrop"
	ActionBuy        Action = "buy"
	ActionSell       Action = "sell"
	ActionClaim      Action = "claim"
	ActionMigrate    Action = "migrate"
	ActionWrapper    Action = "wrapper"
	ActionSetWrapper Action = "set_wrapper"
)

// Scenario is a YAML-described sequence of launches and trades.
type Scenario struct {
	Name     string          `yaml:"name"`
	Accounts []AccountConfig `yaml:"accounts"`
	Curves   []CurveConfig   `yaml:"curves"`
}

// AccountConfig names a participant. Accounts without a private key get a
// fresh keypair on every run.
type AccountConfig struct {
	Name       string `yaml:"name"`
	PrivateKey string `yaml:"private_key"`
}

// CurveConfig describes one launch. Zero reserve fields fall back to the
// configured curve defaults.
type CurveConfig struct {
	Name      string   `yaml:"name"`
	Mint      string   `yaml:"mint"`
	Creator   string   `yaml:"creator"`
	Platform  string   `yaml:"platform"`
	Auxiliary []string `yaml:"auxiliary"`

	VirtualSolReserves   uint64 `yaml:"virtual_sol_reserves"`
	VirtualTokenReserves uint64 `yaml:"virtual_token_reserves"`
	InitialSupply        uint64 `yaml:"initial_supply"`
	GraduationThreshold  uint64 `yaml:"graduation_threshold"`

	Wrapper *WrapperConfig `yaml:"wrapper"`
	Steps   []Step         `yaml:"steps"`
}

// WrapperConfig attaches a fee wrapper to the curve's mint.
type WrapperConfig struct {
	PlatformBps uint16 `yaml:"platform_bps"`
	CreatorBps  uint16 `yaml:"creator_bps"`
}

// Step is one action against a curve. Amounts are display units: SOL for
// airdrop, buy and wrapper steps, tokens for sell steps.
type Step struct {
	Action  Action `yaml:"action"`
	Account string `yaml:"account"`
	Amount  string `yaml:"amount"`
	// Percent sells a share of the account's token balance instead of Amount.
	Percent     uint16 `yaml:"percent"`
	MinOut      string `yaml:"min_out"`
	SlippageBps uint16 `yaml:"slippage_bps"`
	Side        string `yaml:"side"`
	Active      *bool  `yaml:"active"`

	ExpectError string `yaml:"expect_error"`
	ExpectPhase string `yaml:"expect_phase"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// Validate checks references and step shapes without touching an engine.
func (sc *Scenario) Validate() error {
	if len(sc.Curves) == 0 {
		return errors.New("no curves defined")
	}

	accounts := make(map[string]bool, len(sc.Accounts))
	for i, a := range sc.Accounts {
		if a.Name == "" {
			return fmt.Errorf("account %d: name is required", i)
		}
		if accounts[a.Name] {
			return fmt.Errorf("duplicate account %q", a.Name)
		}
		if a.PrivateKey != "" {
			if _, err := solana.PrivateKeyFromBase58(a.PrivateKey); err != nil {
				return fmt.Errorf("account %q: invalid private key: %w", a.Name, err)
			}
		}
		accounts[a.Name] = true
	}
	known := func(name string) error {
		if !accounts[name] {
			return fmt.Errorf("unknown account %q", name)
		}
		return nil
	}

	names := make(map[string]bool, len(sc.Curves))
	for _, c := range sc.Curves {
		if c.Name == "" {
			return errors.New("curve name is required")
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate curve %q", c.Name)
		}
		names[c.Name] = true

		if c.Mint != "" {
			if _, err := solana.PublicKeyFromBase58(c.Mint); err != nil {
				return fmt.Errorf("curve %q: invalid mint: %w", c.Name, err)
			}
		}
		refs := append([]string{c.Creator, c.Platform}, c.Auxiliary...)
		for _, ref := range refs {
			if err := known(ref); err != nil {
				return fmt.Errorf("curve %q: %w", c.Name, err)
			}
		}
		for i, st := range c.Steps {
			if err := st.validate(known, c.Wrapper != nil); err != nil {
				return fmt.Errorf("curve %q step %d: %w", c.Name, i, err)
			}
		}
	}
	return nil
}

func (st *Step) validate(known func(string) error, hasWrapper bool) error {
	if err := known(st.Account); err != nil {
		return err
	}
	switch st.Action {
	case ActionAirdrop, ActionBuy:
		if _, err := parseAmount(st.Amount, curve.SolDecimals); err != nil {
			return err
		}
	case ActionSell:
		if st.Percent > 100 {
			return fmt.Errorf("percent %d exceeds 100", st.Percent)
		}
		if st.Percent == 0 {
			if _, err := parseAmount(st.Amount, curve.TokenDecimals); err != nil {
				return err
			}
		}
	case ActionClaim, ActionMigrate:
	case ActionWrapper:
		if !hasWrapper {
			return errors.New("wrapper step on a curve without a wrapper")
		}
		if _, err := parseSide(st.Side); err != nil {
			return err
		}
		if _, err := parseAmount(st.Amount, curve.SolDecimals); err != nil {
			return err
		}
	case ActionSetWrapper:
		if !hasWrapper {
			return errors.New("set_wrapper step on a curve without a wrapper")
		}
		if st.Active == nil {
			return errors.New("set_wrapper requires active")
		}
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}

	if st.MinOut != "" {
		if _, err := decimal.NewFromString(st.MinOut); err != nil {
			return fmt.Errorf("invalid min_out %q: %w", st.MinOut, err)
		}
	}
	if st.ExpectError != "" {
		if _, ok := expectedErrors[st.ExpectError]; !ok {
			return fmt.Errorf("unknown expect_error %q", st.ExpectError)
		}
	}
	if st.ExpectPhase != "" {
		if _, err := curve.ParsePhase(st.ExpectPhase); err != nil {
			return err
		}
	}
	return nil
}

// parseAmount converts a display amount into base units. "0" is accepted so
// scenarios can exercise zero-amount rejections.
func parseAmount(s string, decimals int32) (uint64, error) {
	if s == "" {
		return 0, errors.New("amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", s)
	}
	v, err := curve.FromDecimal(d, decimals)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func parseSide(s string) (curve.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return curve.SideBuy, nil
	case "sell":
		return curve.SideSell, nil
	}
	return 0, fmt.Errorf("invalid side %q", s)
}
