package service

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/louayabidi/web-semantique/internal/metrics"
	"github.com/louayabidi/web-semantique/internal/model"
	"github.com/louayabidi/web-semantique/internal/ontology"
)

// Builder turns a QueryIntent into SPARQL. Output is byte-identical for
// equal intents, which the translation cache relies on.
type Builder struct {
	mapping *ontology.Mapping
	scorer  *Scorer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a new query builder
func NewBuilder(mapping *ontology.Mapping, scorer *Scorer, logger *slog.Logger, m *metrics.Metrics) *Builder {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		mapping: mapping,
		scorer:  scorer,
		logger:  logger,
		metrics: m,
	}
}

// selectQuery keeps clause assembly apart from text rendering
type selectQuery struct {
	vars     []string
	patterns []string
	filters  []string
	binds    []string
	orderBy  []string
	limit    int
}

func (q *selectQuery) addFilter(f string) {
	for _, existing := range q.filters {
		if existing == f {
			return
		}
	}
	q.filters = append(q.filters, f)
}

func (q *selectQuery) String() string {
	var b strings.Builder
	b.WriteString(ontology.Prefixes())
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.vars, " "))
	b.WriteString("\nWHERE {\n")
	for _, p := range q.patterns {
		b.WriteString("  ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	if len(q.filters) > 0 {
		b.WriteString("  FILTER(")
		b.WriteString(strings.Join(q.filters, " && "))
		b.WriteString(")\n")
	}
	for _, bind := range q.binds {
		b.WriteString("  ")
		b.WriteString(bind)
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	if len(q.orderBy) > 0 {
		b.WriteString("ORDER BY ")
		b.WriteString(strings.Join(q.orderBy, " "))
		b.WriteString("\n")
	}
	b.WriteString("LIMIT ")
	b.WriteString(strconv.Itoa(q.limit))
	return tidy(b.String())
}

// Build never fails: an intent the mapping cannot serve is downgraded to
// the minimal class + name query.
func (b *Builder) Build(intent model.QueryIntent) string {
	q, err := b.build(intent)
	if err != nil {
		b.logger.Warn("falling back to minimal query",
			"entity_kind", intent.EntityKind,
			"error", err,
		)
		b.metrics.BuilderFallback()
		return b.minimal(intent)
	}
	return q
}

func (b *Builder) build(intent model.QueryIntent) (string, error) {
	class, err := b.mapping.Class(intent.EntityKind)
	if err != nil {
		return "", err
	}

	q := &selectQuery{
		vars:     []string{"?id", "?nom", "?type", "?score"},
		patterns: classPatterns(class),
		limit:    clampLimit(orDefault(intent.Limit), model.MaxLimit),
	}

	// medical and goal rules only apply to kinds that carry the attribute
	var medical []ontology.Rule
	covered := map[model.Attribute]bool{}
	for _, f := range intent.MedicalFilters {
		if r, ok := b.mapping.MedicalRule(f); ok && b.mapping.Allows(intent.EntityKind, r.Attribute) {
			medical = append(medical, r)
			covered[r.Attribute] = true
		}
	}
	var goals []ontology.Rule
	for _, r := range b.mapping.GoalRules(intent.Context.Goal) {
		if b.mapping.Allows(intent.EntityKind, r.Attribute) {
			goals = append(goals, r)
		}
	}

	// restriction and condition links of the kind
	var relations []ontology.Relation
	if r, ok := b.mapping.RestrictionRule(intent.EntityKind, intent.Context.Restriction); ok {
		relations = append(relations, r)
	}
	for _, f := range intent.MedicalFilters {
		if r, ok := b.mapping.ConditionRule(intent.EntityKind, f); ok {
			relations = append(relations, r)
		}
	}

	props := map[model.Attribute]ontology.Property{}
	for _, attr := range queryAttributes(intent, medical, goals) {
		p, err := b.mapping.Property(intent.EntityKind, attr)
		if err != nil {
			return "", err
		}
		props[attr] = p
		q.vars = append(q.vars, p.Var())
		q.patterns = append(q.patterns, fmt.Sprintf("OPTIONAL { ?entity %s:%s %s . }", ontology.Prefix, p.Local, p.Var()))
	}

	var terms []scoreTerm

	if intent.NamePattern != "" {
		cond := fmt.Sprintf("REGEX(?nom, %s, \"i\")", regexLiteral(intent.NamePattern))
		q.addFilter(cond)
		terms = append(terms, scoreTerm{bonus: BonusNameMatch, condition: cond})
	}

	for _, c := range intent.NumericConstraints {
		p := props[c.Attribute]
		strict := c.Operator != model.OpEqual && covered[c.Attribute]
		q.addFilter(comparison(p, string(c.Operator), c.Value, !strict))
	}

	for _, c := range intent.Comparisons {
		r, ok := b.mapping.Threshold(c.Attribute, c.Direction)
		if !ok {
			return "", fmt.Errorf("no %s threshold for %s", c.Direction, c.Attribute)
		}
		q.addFilter(comparison(props[c.Attribute], r.Op, r.Value, true))
	}

	for _, r := range medical {
		q.addFilter(comparison(props[r.Attribute], r.Op, r.Value, true))
	}
	for _, r := range goals {
		q.addFilter(comparison(props[r.Attribute], r.Op, r.Value, true))
	}
	for _, r := range relations {
		if r.Required {
			q.addFilter(exists(r))
		}
	}

	for _, attr := range model.AllAttributes {
		if p, ok := props[attr]; ok {
			terms = append(terms, scoreTerm{bonus: BonusAttributePresent, condition: "BOUND(" + p.Var() + ")"})
		}
	}
	for _, r := range medical {
		p := props[r.Attribute]
		terms = append(terms, scoreTerm{
			bonus:     BonusMedicalSatisfied,
			condition: fmt.Sprintf("BOUND(%s) && %s %s %s", p.Var(), p.Var(), r.Op, formatValue(p, r.Value)),
		})
	}
	for _, r := range relations {
		if !r.Required {
			terms = append(terms, scoreTerm{bonus: BonusMedicalSatisfied, condition: exists(r)})
		}
	}
	q.binds = append(q.binds, fmt.Sprintf("BIND(%s AS ?score)", b.scorer.Expression(terms)))

	q.orderBy = []string{"DESC(?score)"}
	if key := secondaryKey(intent, props, medical); key != "" {
		q.orderBy = append(q.orderBy, key)
	}
	q.orderBy = append(q.orderBy, "?nom")

	return q.String(), nil
}

// minimal is the query of last resort: class, name and a literal name filter
func (b *Builder) minimal(intent model.QueryIntent) string {
	class, err := b.mapping.Class(intent.EntityKind)
	if err != nil {
		class, _ = b.mapping.Class(model.EntityFood)
	}
	q := &selectQuery{
		vars:     []string{"?id", "?nom", "?type"},
		patterns: classPatterns(class),
		orderBy:  []string{"?nom"},
		limit:    clampLimit(orDefault(intent.Limit), model.MaxLimit),
	}
	if intent.NamePattern != "" {
		q.addFilter(fmt.Sprintf("CONTAINS(LCASE(?nom), %s)", literal(strings.ToLower(intent.NamePattern))))
	}
	return q.String()
}

// BuildCountQuery counts the individuals of every mapped class
func (b *Builder) BuildCountQuery() string {
	var values []string
	for _, c := range b.mapping.Classes() {
		values = append(values, c.IRI())
	}
	return tidy(ontology.Prefixes() +
		"SELECT ?class (COUNT(DISTINCT ?entity) AS ?count)\n" +
		"WHERE {\n" +
		"  VALUES ?class { " + strings.Join(values, " ") + " }\n" +
		"  ?entity a ?class .\n" +
		"}\n" +
		"GROUP BY ?class\n" +
		"ORDER BY ?class")
}

func classPatterns(class ontology.Class) []string {
	return []string{
		fmt.Sprintf("?entity a %s ;\n    %s:%s ?nom .", class.IRI(), ontology.Prefix, ontology.NameProperty),
		fmt.Sprintf("BIND(%s AS ?type)", literal(class.Label)),
		`BIND(STRAFTER(STR(?entity), "#") AS ?id)`,
	}
}

// queryAttributes is every attribute the query must bind, in canonical order
func queryAttributes(intent model.QueryIntent, medical, goals []ontology.Rule) []model.Attribute {
	wanted := map[model.Attribute]bool{}
	for _, a := range intent.Attributes {
		wanted[a] = true
	}
	for _, c := range intent.NumericConstraints {
		wanted[c.Attribute] = true
	}
	for _, c := range intent.Comparisons {
		wanted[c.Attribute] = true
	}
	for _, r := range medical {
		wanted[r.Attribute] = true
	}
	for _, r := range goals {
		wanted[r.Attribute] = true
	}

	var out []model.Attribute
	for _, a := range model.AllAttributes {
		if wanted[a] {
			out = append(out, a)
		}
	}
	return out
}

// comparison renders "(?v op n || !BOUND(?v))", or "(?v op n)" when rows
// lacking the measurement must be excluded
func comparison(p ontology.Property, op string, value float64, keepUnbound bool) string {
	expr := fmt.Sprintf("%s %s %s", p.Var(), op, formatValue(p, value))
	if keepUnbound {
		return "(" + expr + " || !BOUND(" + p.Var() + "))"
	}
	return "(" + expr + ")"
}

// exists renders "EXISTS { ... }" over the link of r, matching the linked
// node by its nom when r.Match is set
func exists(r ontology.Relation) string {
	node := "?" + r.Node
	link := fmt.Sprintf("EXISTS { ?entity %s:%s %s .", ontology.Prefix, r.Property, node)
	if r.Match == "" {
		return link + " }"
	}
	return fmt.Sprintf("%s %s %s:%s %sNom . FILTER(REGEX(%sNom, %s, \"i\")) }",
		link, node, ontology.Prefix, ontology.NameProperty, node, node, literal(r.Match))
}

// secondaryKey orders by the first directional attribute: qualitative
// comparisons, then explicit numbers, then medical thresholds
func secondaryKey(intent model.QueryIntent, props map[model.Attribute]ontology.Property, medical []ontology.Rule) string {
	for _, c := range intent.Comparisons {
		if p, ok := props[c.Attribute]; ok {
			if c.Direction == model.DirectionLow {
				return "ASC(" + p.Var() + ")"
			}
			return "DESC(" + p.Var() + ")"
		}
	}
	for _, c := range intent.NumericConstraints {
		p, ok := props[c.Attribute]
		if !ok {
			continue
		}
		switch c.Operator {
		case model.OpGreater:
			return "DESC(" + p.Var() + ")"
		case model.OpLess:
			return "ASC(" + p.Var() + ")"
		}
	}
	for _, r := range medical {
		if p, ok := props[r.Attribute]; ok {
			if strings.HasPrefix(r.Op, ">") {
				return "DESC(" + p.Var() + ")"
			}
			return "ASC(" + p.Var() + ")"
		}
	}
	return ""
}

func formatValue(p ontology.Property, v float64) string {
	if p.Decimal {
		return formatDecimal(v)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(limit int) int {
	if limit <= 0 {
		return model.DefaultLimit
	}
	return limit
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// escapeLiteral is the only place user text is made safe for a SPARQL string
func escapeLiteral(s string) string {
	return literalEscaper.Replace(s)
}

func literal(s string) string {
	return `"` + escapeLiteral(s) + `"`
}

// regexLiteral quotes s as a regex matching it literally, then as a SPARQL string
func regexLiteral(s string) string {
	return literal(regexp.QuoteMeta(s))
}

// tidy drops blank lines and collapses runs of blanks outside string
// literals; leading indentation is kept
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		out = append(out, indent+collapseBlanks(trimmed))
	}
	return strings.Join(out, "\n")
}

func collapseBlanks(s string) string {
	var b strings.Builder
	inString, escaped, prevBlank := false, false, false
	for _, r := range s {
		switch {
		case inString:
			b.WriteRune(r)
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		case r == '"':
			inString = true
			prevBlank = false
			b.WriteRune(r)
			continue
		case r == ' ' || r == '\t':
			if prevBlank {
				continue
			}
			prevBlank = true
			b.WriteRune(' ')
			continue
		}
		prevBlank = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}
