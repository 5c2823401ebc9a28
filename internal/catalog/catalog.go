// Package catalog is the read-only settings the engine consults: plan prices and
// limits, the slot and pin packages on sale, and bank transfer details for display.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"planguard/internal/model"
)

type Catalog struct {
	Plans        []model.PlanInfo  `json:"plans" yaml:"plans"`
	SlotPackages []model.Package   `json:"slot_packages" yaml:"slot_packages"`
	PinPackages  []model.Package   `json:"pin_packages" yaml:"pin_packages"`
	Bank         model.BankDetails `json:"bank" yaml:"bank"`
}

// Default is used when no catalog file is configured.
func Default() *Catalog {
	return &Catalog{
		Plans: []model.PlanInfo{
			{Name: model.PlanFree, Price: 0, ProjectLimit: 3, PinLimit: 5},
			{Name: model.PlanPro, Price: 900, ProjectLimit: 20, PinLimit: 50},
			{Name: model.PlanUltra, Price: 2500, ProjectLimit: 100, PinLimit: 250},
		},
		SlotPackages: []model.Package{
			{Label: "5 Slots", Quantity: 5, Price: 200},
			{Label: "10 Slots", Quantity: 10, Price: 350},
		},
		PinPackages: []model.Package{
			{Label: "10 Pins", Quantity: 10, Price: 100},
			{Label: "25 Pins", Quantity: 25, Price: 200},
		},
		Bank: model.BankDetails{
			BankName:    "Configure via PLANGUARD_CATALOG_PATH",
			AccountName: "-",
			Note:        "Put your e-mail in the transfer reference.",
		},
	}
}

// Load reads a YAML catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) Validate() error {
	var errs []error
	seen := map[model.Plan]bool{}
	for _, p := range c.Plans {
		if !p.Name.Valid() {
			errs = append(errs, fmt.Errorf("unknown plan %q", p.Name))
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate plan %q", p.Name))
		}
		seen[p.Name] = true
	}
	if !seen[model.PlanFree] {
		errs = append(errs, errors.New("catalog must define the free plan"))
	}
	for _, group := range [][]model.Package{c.SlotPackages, c.PinPackages} {
		for _, pkg := range group {
			if strings.TrimSpace(pkg.Label) == "" {
				errs = append(errs, errors.New("package with empty label"))
			}
			if pkg.Quantity <= 0 {
				errs = append(errs, fmt.Errorf("package %q: quantity must be positive", pkg.Label))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Catalog) Plan(name model.Plan) (model.PlanInfo, bool) {
	for _, p := range c.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return model.PlanInfo{}, false
}

// Resolve maps a request's item to the quantity its approval grants.
// Upgrades grant a plan, not a quantity, and resolve to zero.
func (c *Catalog) Resolve(t model.RequestType, itemID string) (int64, error) {
	switch t {
	case model.RequestUpgrade:
		if _, ok := c.Plan(model.Plan(itemID)); ok && model.Plan(itemID) != model.PlanFree {
			return 0, nil
		}
	case model.RequestSlots:
		if pkg, ok := findPackage(c.SlotPackages, itemID); ok {
			return pkg.Quantity, nil
		}
	case model.RequestPins:
		if pkg, ok := findPackage(c.PinPackages, itemID); ok {
			return pkg.Quantity, nil
		}
	default:
		return 0, fmt.Errorf("%w: type %q", model.ErrInvalidRequest, t)
	}
	return 0, fmt.Errorf("%w: %s %q", model.ErrUnknownItem, t, itemID)
}

// Limits returns the effective project and pin limits for a ledger.
func (c *Catalog) Limits(l model.Ledger) (projects, pins int64) {
	p, ok := c.Plan(l.Plan)
	if !ok {
		p, _ = c.Plan(model.PlanFree)
	}
	return p.ProjectLimit + l.ExtraSlots, p.PinLimit + l.ExtraPins
}

func findPackage(pkgs []model.Package, label string) (model.Package, bool) {
	label = strings.TrimSpace(label)
	for _, pkg := range pkgs {
		if strings.EqualFold(pkg.Label, label) {
			return pkg, true
		}
	}
	return model.Package{}, false
}
