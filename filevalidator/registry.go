package filevalidator

import (
	"fmt"
	"io"
	"slices"

	"github.com/BurntSushi/toml"
)

// PolicyTable is an immutable set of policies keyed by owner kind and category.
// It is built once and shared by reference; lookups return copies.
type PolicyTable struct {
	policies map[PolicyKey]Policy
	order    []PolicyKey
}

// NewPolicyTable validates the policies and builds a table. Duplicate keys are rejected.
func NewPolicyTable(policies ...Policy) (*PolicyTable, error) {
	t := &PolicyTable{
		policies: make(map[PolicyKey]Policy, len(policies)),
		order:    make([]PolicyKey, 0, len(policies)),
	}
	for _, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		key := p.Key()
		if _, dup := t.policies[key]; dup {
			return nil, fmt.Errorf("duplicate policy %s", key)
		}
		t.policies[key] = p.clone()
		t.order = append(t.order, key)
	}
	return t, nil
}

// DefaultPolicies returns the standard vendor and customer policies.
func DefaultPolicies() []Policy {
	return []Policy{
		ForImages(OwnerVendor, CategoryProductImage).
			MaxFiles(10).MaxSize(2*MB).
			MinDimensions(300, 300).MaxDimensions(1920, 1080).
			MustBuild(),
		ForVideo(OwnerVendor, CategoryProductVideo).
			MaxFiles(3).MaxSize(50*MB).
			MinDimensions(640, 480).MaxDimensions(1920, 1080).
			MaxDuration(120).
			MustBuild(),
		ForSpreadsheets(OwnerVendor).
			MaxFiles(5).MaxSize(10*MB).MaxRows(1000).
			MustBuild(),
		NewPolicyBuilder(OwnerVendor, CategoryBusinessDocument).
			Accept(FormatPDF, FormatJPEG, FormatPNG).
			MaxFiles(10).MaxSize(10*MB).
			MustBuild(),
		ForImages(OwnerCustomer, CategoryAvatar).
			MaxFiles(1).MaxSize(1*MB).
			MinDimensions(100, 100).MaxDimensions(512, 512).
			MustBuild(),
		ForImages(OwnerCustomer, CategoryRoomPhoto).
			MaxFiles(5).MaxSize(3*MB).
			MinDimensions(640, 480).MaxDimensions(1920, 1080).
			MustBuild(),
		ForSpreadsheets(OwnerCustomer).
			MaxFiles(1).MaxSize(10*MB).MaxRows(1000).
			MustBuild(),
	}
}

// DefaultPolicyTable builds the table of DefaultPolicies.
func DefaultPolicyTable() *PolicyTable {
	t, err := NewPolicyTable(DefaultPolicies()...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the policy for an owner kind and category.
func (t *PolicyTable) Lookup(owner OwnerKind, category Category) (Policy, bool) {
	p, ok := t.policies[PolicyKey{Owner: owner, Category: category}]
	if !ok {
		return Policy{}, false
	}
	return p.clone(), true
}

// Policies returns every policy in insertion order.
func (t *PolicyTable) Policies() []Policy {
	out := make([]Policy, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.policies[key].clone())
	}
	return out
}

// Len returns the number of policies.
func (t *PolicyTable) Len() int {
	return len(t.order)
}

// WithOverrides returns a new table in which the given policies replace or
// extend the entries of t. t itself is unchanged.
func (t *PolicyTable) WithOverrides(overrides ...Policy) (*PolicyTable, error) {
	merged := t.Policies()
	for _, o := range overrides {
		idx := slices.IndexFunc(merged, func(p Policy) bool { return p.Key() == o.Key() })
		if idx >= 0 {
			merged[idx] = o
		} else {
			merged = append(merged, o)
		}
	}
	return NewPolicyTable(merged...)
}

// policyFile is the TOML shape of a policy override file:
//
//	[[policy]]
//	owner = "vendor"
//	category = "product-image"
//	max_files = 20
//	max_size = "4MB"
//	formats = ["jpeg", "png", "webp"]
//	min_dimensions = [300, 300]
//	max_dimensions = [4096, 4096]
type policyFile struct {
	Policy []policyEntry `toml:"policy"`
}

type policyEntry struct {
	Owner         string   `toml:"owner"`
	Category      string   `toml:"category"`
	MaxFiles      int      `toml:"max_files"`
	MaxSize       string   `toml:"max_size"`
	Formats       []Format `toml:"formats"`
	MinDimensions []int    `toml:"min_dimensions"`
	MaxDimensions []int    `toml:"max_dimensions"`
	MaxDuration   float64  `toml:"max_duration_seconds"`
	MaxRows       int      `toml:"max_rows"`
}

func (e policyEntry) policy() (Policy, error) {
	owner, err := ParseOwnerKind(e.Owner)
	if err != nil {
		return Policy{}, err
	}
	category, err := ParseCategory(e.Category)
	if err != nil {
		return Policy{}, err
	}

	b := NewPolicyBuilder(owner, category).
		MaxFiles(e.MaxFiles).
		Accept(e.Formats...).
		MaxDuration(e.MaxDuration).
		MaxRows(e.MaxRows)

	if e.MaxSize != "" {
		size, err := ParseSize(e.MaxSize)
		if err != nil {
			return Policy{}, fmt.Errorf("policy %s/%s: %w", owner, category, err)
		}
		b.MaxSize(size)
	}
	if d, err := dimensionPair(e.MinDimensions); err != nil {
		return Policy{}, fmt.Errorf("policy %s/%s min_dimensions: %w", owner, category, err)
	} else if d != nil {
		b.MinDimensions(d.Width, d.Height)
	}
	if d, err := dimensionPair(e.MaxDimensions); err != nil {
		return Policy{}, fmt.Errorf("policy %s/%s max_dimensions: %w", owner, category, err)
	} else if d != nil {
		b.MaxDimensions(d.Width, d.Height)
	}
	return b.Build()
}

func dimensionPair(v []int) (*Dimensions, error) {
	switch len(v) {
	case 0:
		return nil, nil
	case 2:
		return &Dimensions{Width: v[0], Height: v[1]}, nil
	default:
		return nil, fmt.Errorf("expected [width, height], got %d values", len(v))
	}
}

// LoadPolicyOverrides decodes a TOML policy file.
func LoadPolicyOverrides(r io.Reader) ([]Policy, error) {
	var file policyFile
	md, err := toml.NewDecoder(r).Decode(&file)
	if err != nil {
		return nil, fmt.Errorf("decode policy file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown policy file keys: %v", undecoded)
	}

	policies := make([]Policy, 0, len(file.Policy))
	for _, e := range file.Policy {
		p, err := e.policy()
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}
