package research

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Loader reads research documents from the data directory into a per-cycle
// snapshot. One JSON document per symbol under <dir>/research/, plus a
// shared macro.json. A missing or malformed document degrades to "absent"
// for that symbol; only an unreadable directory fails the load.
type Loader struct {
	dir string
	log zerolog.Logger
}

// NewLoader creates a new research data loader
func NewLoader(dataDir string, log zerolog.Logger) *Loader {
	return &Loader{
		dir: filepath.Join(dataDir, "research"),
		log: log.With().Str("component", "research_loader").Logger(),
	}
}

// symbolDocument is the on-disk shape of one symbol's research document
type symbolDocument struct {
	Profile       *SymbolProfile        `json:"profile"`
	Fundamentals  *Fundamentals         `json:"fundamentals"`
	Technicals    *Technicals           `json:"technicals"`
	News          []NewsItem            `json:"news"`
	Earnings      []EarningsCallSummary `json:"earnings"`
	Insider       *InsiderActivity      `json:"insider"`
	Institutional *InstitutionalFlow    `json:"institutional"`
	Liquidity     *LiquidityMetrics     `json:"liquidity"`
	Risk          *RiskFlags            `json:"risk"`
	Sources       []string              `json:"sources"`
}

// Load reads all symbol documents and the macro document into a fresh
// snapshot. The returned snapshot is owned by the caller for the cycle.
func (l *Loader) Load() (*Data, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			// No research directory yet: an empty universe, not an error
			l.log.Warn().Str("dir", l.dir).Msg("Research directory does not exist")
			return NewData(), nil
		}
		return nil, fmt.Errorf("failed to read research directory: %w", err)
	}

	data := NewData()
	data.AsOf = time.Now()

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name == "macro.json" {
			l.loadMacro(data)
			continue
		}

		symbol := strings.ToUpper(strings.TrimSuffix(name, ".json"))
		l.loadSymbol(data, symbol, filepath.Join(l.dir, name))
	}

	l.log.Info().
		Int("symbols", len(data.Symbols())).
		Msg("Research snapshot loaded")

	return data, nil
}

// loadSymbol reads one symbol document into the snapshot. Unreadable or
// malformed documents are skipped with a warning.
func (l *Loader) loadSymbol(data *Data, symbol, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read research document")
		return
	}

	var doc symbolDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		l.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to parse research document")
		return
	}

	if doc.Profile != nil {
		doc.Profile.Symbol = symbol
		data.Profiles[symbol] = doc.Profile
	}
	if doc.Fundamentals != nil {
		data.Fundamentals[symbol] = doc.Fundamentals
	}
	if doc.Technicals != nil {
		doc.Technicals.FillFromCloses()
		data.Technicals[symbol] = doc.Technicals
	}
	if len(doc.News) > 0 {
		data.News[symbol] = doc.News
	}
	if len(doc.Earnings) > 0 {
		data.Earnings[symbol] = doc.Earnings
	}
	if doc.Insider != nil {
		data.Insider[symbol] = doc.Insider
	}
	if doc.Institutional != nil {
		data.Institutional[symbol] = doc.Institutional
	}
	if doc.Liquidity != nil {
		data.Liquidity[symbol] = doc.Liquidity
	}
	if doc.Risk != nil {
		data.Risk[symbol] = doc.Risk
	}
	if len(doc.Sources) > 0 {
		data.Sources[symbol] = doc.Sources
	}
}

// loadMacro reads the shared macro document. Absence leaves zero-value
// macro data, which the regime detector treats as neutral.
func (l *Loader) loadMacro(data *Data) {
	raw, err := os.ReadFile(filepath.Join(l.dir, "macro.json"))
	if err != nil {
		l.log.Warn().Err(err).Msg("Failed to read macro document")
		return
	}

	var macro MacroData
	if err := json.Unmarshal(raw, &macro); err != nil {
		l.log.Warn().Err(err).Msg("Failed to parse macro document")
		return
	}

	data.Macro = macro
}
