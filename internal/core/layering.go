package core

// Source says which layer produced an effective value. Higher layers win:
// an entity's own pinned month data beats a month-config override, which
// beats the template baseline.
type Source string

const (
	SourceNone     Source = "none"
	SourceTemplate Source = "template"
	SourceOverride Source = "override"
	SourceExplicit Source = "explicit"
)

type (
	// BudgetTemplate is a reusable named baseline plan, independent of any
	// specific month.
	BudgetTemplate struct {
		ID        string
		Name      string
		IsDefault bool

		GroupLimits        map[string]Money
		SubCategoryBudgets map[string]Money
		BucketValues       map[string]BucketData
	}

	// MonthConfig binds one concrete month to a template plus sparse
	// per-month exceptions. Overrides are always deltas on top of the
	// referenced template, never a replacement.
	MonthConfig struct {
		Month      MonthKey
		TemplateID string
		Locked     bool

		GroupOverrides       map[string]Money
		SubCategoryOverrides map[string]Money
		BucketOverrides      map[string]BucketData
	}

	// Plan holds the template and month-config collections the layering
	// resolvers read. It is a view over in-memory state, not an owner.
	Plan struct {
		Templates    map[string]BudgetTemplate
		MonthConfigs map[MonthKey]MonthConfig
	}
)

// Layered is a resolved amount tagged with the layer it came from.
type Layered struct {
	Amount Money
	Source Source
}

// DefaultTemplate returns the template marked as default, if any.
func (p Plan) DefaultTemplate() (BudgetTemplate, bool) {
	for _, t := range p.Templates {
		if t.IsDefault {
			return t, true
		}
	}
	return BudgetTemplate{}, false
}

// templateFor returns the template governing a month: the one referenced by
// the month's config, falling back to the default template when no config
// row exists (configs are created lazily).
func (p Plan) templateFor(month MonthKey) (MonthConfig, BudgetTemplate, bool) {
	cfg, hasCfg := p.MonthConfigs[month]
	if hasCfg {
		if t, ok := p.Templates[cfg.TemplateID]; ok {
			return cfg, t, true
		}
		return cfg, BudgetTemplate{}, false
	}
	t, ok := p.DefaultTemplate()
	return MonthConfig{Month: month, TemplateID: t.ID}, t, ok
}

// GroupLimit resolves the effective spending limit of a group for a month.
// The group's own pinned monthly data wins; an explicit stop there is final
// and does not fall through to the template layer.
func (p Plan) GroupLimit(g BudgetGroup, month MonthKey) Layered {
	r := ResolveEffective(g.MonthlyData, month)
	if r.Found {
		return Layered{Amount: r.Value.Limit, Source: SourceExplicit}
	}
	if r.Stopped {
		return Layered{Source: SourceExplicit}
	}
	cfg, tpl, ok := p.templateFor(month)
	if amount, has := cfg.GroupOverrides[g.ID]; has {
		return Layered{Amount: amount, Source: SourceOverride}
	}
	if ok {
		if amount, has := tpl.GroupLimits[g.ID]; has {
			return Layered{Amount: amount, Source: SourceTemplate}
		}
	}
	return Layered{Source: SourceNone}
}

// SubCategoryBudget resolves the effective budget of a sub-category for a
// month. Sub-categories carry no time series of their own, so only the
// override and template layers apply.
func (p Plan) SubCategoryBudget(subID string, month MonthKey) Layered {
	cfg, tpl, ok := p.templateFor(month)
	if amount, has := cfg.SubCategoryOverrides[subID]; has {
		return Layered{Amount: amount, Source: SourceOverride}
	}
	if ok {
		if amount, has := tpl.SubCategoryBudgets[subID]; has {
			return Layered{Amount: amount, Source: SourceTemplate}
		}
	}
	return Layered{Source: SourceNone}
}

// BucketValue resolves the effective per-month data of a bucket, layering
// the bucket's own monthly data over month-config overrides over the
// template baseline.
func (p Plan) BucketValue(b Bucket, month MonthKey) (BucketData, Source) {
	r := ResolveEffective(b.MonthlyData, month)
	if r.Found {
		return r.Value, SourceExplicit
	}
	if r.Stopped {
		return BucketData{}, SourceExplicit
	}
	cfg, tpl, ok := p.templateFor(month)
	if data, has := cfg.BucketOverrides[b.ID]; has {
		return data, SourceOverride
	}
	if ok {
		if data, has := tpl.BucketValues[b.ID]; has {
			return data, SourceTemplate
		}
	}
	return BucketData{}, SourceNone
}

// AssignTemplateToMonth points a month at a different template and clears
// the month's overrides: exceptions were deltas on the old baseline and do
// not survive the switch. The config row is created when missing.
func (p *Plan) AssignTemplateToMonth(month MonthKey, templateID string) {
	cfg := p.MonthConfigs[month]
	cfg.Month = month
	cfg.TemplateID = templateID
	cfg.GroupOverrides = nil
	cfg.SubCategoryOverrides = nil
	cfg.BucketOverrides = nil
	if p.MonthConfigs == nil {
		p.MonthConfigs = make(map[MonthKey]MonthConfig)
	}
	p.MonthConfigs[month] = cfg
}

// ResetMonthToTemplate clears a month's overrides without changing which
// template it references.
func (p *Plan) ResetMonthToTemplate(month MonthKey) {
	cfg, ok := p.MonthConfigs[month]
	if !ok {
		return
	}
	cfg.GroupOverrides = nil
	cfg.SubCategoryOverrides = nil
	cfg.BucketOverrides = nil
	p.MonthConfigs[month] = cfg
}

// SnapshotTemplate flattens the values effective for a source month (the
// governing template's baseline merged with that month's active overrides)
// into a fresh, independent template. The new template shares nothing with
// its source: later edits to either leave the other untouched.
func (p Plan) SnapshotTemplate(id, name string, source MonthKey) BudgetTemplate {
	out := BudgetTemplate{
		ID:                 id,
		Name:               name,
		GroupLimits:        make(map[string]Money),
		SubCategoryBudgets: make(map[string]Money),
		BucketValues:       make(map[string]BucketData),
	}
	cfg, tpl, ok := p.templateFor(source)
	if ok {
		for gid, amount := range tpl.GroupLimits {
			out.GroupLimits[gid] = amount
		}
		for sid, amount := range tpl.SubCategoryBudgets {
			out.SubCategoryBudgets[sid] = amount
		}
		for bid, data := range tpl.BucketValues {
			out.BucketValues[bid] = data
		}
	}
	for gid, amount := range cfg.GroupOverrides {
		out.GroupLimits[gid] = amount
	}
	for sid, amount := range cfg.SubCategoryOverrides {
		out.SubCategoryBudgets[sid] = amount
	}
	for bid, data := range cfg.BucketOverrides {
		out.BucketValues[bid] = data
	}
	return out
}

// Clone returns a deep copy of the template.
func (t BudgetTemplate) Clone() BudgetTemplate {
	out := t
	out.GroupLimits = make(map[string]Money, len(t.GroupLimits))
	for k, v := range t.GroupLimits {
		out.GroupLimits[k] = v
	}
	out.SubCategoryBudgets = make(map[string]Money, len(t.SubCategoryBudgets))
	for k, v := range t.SubCategoryBudgets {
		out.SubCategoryBudgets[k] = v
	}
	out.BucketValues = make(map[string]BucketData, len(t.BucketValues))
	for k, v := range t.BucketValues {
		out.BucketValues[k] = v
	}
	return out
}
