package round

import "fmt"

// Default grid parameters. Hosts may substitute their own Config.
const (
	DefaultCellCount      = 25
	DefaultMaxHazards     = 15
	DefaultBaseMultiplier = 1.2
	DefaultRiskFactor     = 0.1

	// defaultHazardCount seeds the first round; players adjust it per round.
	defaultHazardCount = 3
)

// Config holds the immutable grid parameters for a table. It is fixed for
// the life of a Machine; per-round tuning happens through SetHazardCount.
type Config struct {
	CellCount      int     `json:"cellCount"`
	MaxHazards     int     `json:"maxHazards"`
	BaseMultiplier float64 `json:"baseMultiplier"`
	RiskFactor     float64 `json:"riskFactor"`
}

// DefaultConfig returns the stock 5x5 table.
func DefaultConfig() Config {
	return Config{
		CellCount:      DefaultCellCount,
		MaxHazards:     DefaultMaxHazards,
		BaseMultiplier: DefaultBaseMultiplier,
		RiskFactor:     DefaultRiskFactor,
	}
}

// Validate rejects configs the machine cannot run on.
func (c Config) Validate() error {
	if c.CellCount <= 0 {
		return fmt.Errorf("cellCount must be positive, got %d", c.CellCount)
	}
	if c.MaxHazards <= 0 || c.MaxHazards >= c.CellCount {
		return fmt.Errorf("maxHazards must be in [1, %d), got %d", c.CellCount, c.MaxHazards)
	}
	if c.BaseMultiplier <= 1.0 {
		return fmt.Errorf("baseMultiplier must exceed 1.0, got %v", c.BaseMultiplier)
	}
	if c.RiskFactor <= 0 {
		return fmt.Errorf("riskFactor must be positive, got %v", c.RiskFactor)
	}
	return nil
}
