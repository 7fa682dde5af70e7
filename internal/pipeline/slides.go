package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"deckforge/internal/logging"
	"deckforge/internal/services"
)

// CollectSlides returns the PNGs to assemble. When every configured unit has
// an output the deck order is used; otherwise any file in the output dir that
// matches the output pattern is taken, in natural order.
func (p *Pipeline) CollectSlides() ([]string, error) {
	var canonical []string
	var missing []string
	for _, u := range p.cfg.Units {
		path := p.cfg.UnitOutputPath(u.ID)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			canonical = append(canonical, path)
		} else {
			missing = append(missing, u.ID)
		}
	}
	if len(missing) == 0 && len(canonical) > 0 {
		return canonical, nil
	}

	discovered, err := p.discoverSlides()
	if err != nil {
		return nil, err
	}
	if len(discovered) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "pdf", "collect slides",
			fmt.Sprintf("no rendered slides in %s", p.cfg.Paths.OutputDir), nil)
	}
	logging.WarnWithContext(p.logger, "deck incomplete; using discovered slides", "pdf_slides_discovered",
		logging.Int("missing", len(missing)),
		logging.Int("discovered", len(discovered)),
		logging.String(logging.FieldErrorHint, "run deckforge render to produce every configured slide"),
		logging.String(logging.FieldImpact, "pdf page order follows file names"))
	return discovered, nil
}

func (p *Pipeline) discoverSlides() ([]string, error) {
	pattern, err := outputMatcher(p.cfg.Render.OutputPattern)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p.cfg.Paths.OutputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && pattern.MatchString(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return naturalLess(names[i], names[j]) })
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(p.cfg.Paths.OutputDir, name))
	}
	return paths, nil
}

// outputMatcher turns an output pattern such as "v3-{id}.png" into a regexp
// matching any unit's output name.
func outputMatcher(outputPattern string) (*regexp.Regexp, error) {
	prefix, suffix, ok := strings.Cut(outputPattern, "{id}")
	if !ok {
		return nil, fmt.Errorf("output pattern %q has no {id}", outputPattern)
	}
	return regexp.Compile("^" + regexp.QuoteMeta(prefix) + ".+" + regexp.QuoteMeta(suffix) + "$")
}

// naturalLess orders strings with embedded numbers numerically, so Slide2
// sorts before Slide10. Case is ignored unless the names differ only in case.
func naturalLess(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return natural.Less(la, lb)
	}
	return a < b
}
