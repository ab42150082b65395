// Package strategy loads strategy descriptors into ordered, compiled rules.
//
// A descriptor file is a hierarchical key/value document. Each named strategy
// maps to an ordered set of entries: a reserved PARAMS entry supplies run
// parameters, every other entry is a rule whose key encodes the action and
// quantity and whose value is a nested AND/OR condition tree. Entry order is
// significant and preserved.
package strategy

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"plumsim/internal/errors"
	"plumsim/internal/expr"
	"plumsim/internal/timeframe"
)

// Role is the action of a rule.
type Role string

const (
	RoleBuy  Role = "BUY"
	RoleSell Role = "SELL"
)

// Rule is one compiled strategy rule. Rules of the same role keep descriptor
// order; order is significant to the engine.
type Rule struct {
	Name      string
	Role      Role
	Timeframe timeframe.Timeframe
	Quantity  float64

	ConditionText string
	PriceText     string
	StopText      string

	Condition expr.Node
	Price     expr.Node
	Stop      expr.Node // nil when the rule sets no stop-loss
}

// Strategy is a loaded, compiled strategy.
type Strategy struct {
	Name      string
	Params    *Params
	BuyRules  []Rule
	SellRules []Rule

	// RuleTexts collects every expression text for the indicator compiler.
	RuleTexts []string

	// Warnings records rules skipped over configuration errors.
	Warnings []error
}

// Load reads a descriptor file and compiles the named strategy.
func Load(path, name string, logger zerolog.Logger) (*Strategy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading strategy file")
	}
	return Parse(raw, name, logger)
}

// Parse compiles the named strategy out of descriptor bytes.
func Parse(raw []byte, name string, logger zerolog.Logger) (*Strategy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "parsing strategy file")
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.Wrap(errors.ErrStrategyNotFound, name)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.Wrap(errors.ErrStrategyNotFound, name)
	}

	var body *yaml.Node
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == name {
			body = root.Content[i+1]
			break
		}
	}
	if body == nil || body.Kind != yaml.MappingNode {
		return nil, errors.Wrap(errors.ErrStrategyNotFound, name)
	}

	st := &Strategy{Name: name, Params: NewParams()}
	for i := 0; i+1 < len(body.Content); i += 2 {
		key := body.Content[i].Value
		val := body.Content[i+1]

		if strings.EqualFold(key, "PARAMS") {
			loadParams(st.Params, val)
			continue
		}

		if err := st.addRule(key, val); err != nil {
			st.Warnings = append(st.Warnings, err)
			logger.Warn().Err(err).Str("rule", key).Msg("skipping rule")
		}
	}
	return st, nil
}

func loadParams(p *Params, n *yaml.Node) {
	if n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		p.Set(name, paramValue(n.Content[i+1]))
	}
}

// paramValue converts one scalar. Percent strings divide by 100.
func paramValue(n *yaml.Node) expr.Value {
	s := strings.TrimSpace(n.Value)
	if strings.HasSuffix(s, "%") {
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64); err == nil {
			return expr.Number(f / 100)
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return expr.Number(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return expr.Boolean(b)
	}
	return expr.String(s)
}

// ruleParts accumulates the side outputs of a condition-tree walk.
type ruleParts struct {
	timeframe string
	price     string
	stop      string
}

func (st *Strategy) addRule(key string, val *yaml.Node) error {
	action, qty, err := parseAction(key)
	if err != nil {
		return errors.NewConfigError(st.Name, key, "malformed action key", err)
	}

	var role Role
	switch {
	case strings.Contains(action, "BUY"):
		role = RoleBuy
	case strings.Contains(action, "SELL"):
		role = RoleSell
	default:
		return errors.NewConfigError(st.Name, key, "action must contain BUY or SELL", nil)
	}

	parts := &ruleParts{timeframe: "Day - All"}
	condText := strings.TrimSpace(walkCondition(key, val, parts))
	if condText == "" || condText == "( )" {
		return errors.NewConfigError(st.Name, key, "rule has no condition", nil)
	}

	tf, err := timeframe.Parse(parts.timeframe)
	if err != nil {
		return errors.NewConfigError(st.Name, key, "timeframe", err)
	}

	if parts.price == "" {
		if role == RoleBuy {
			parts.price = "Open"
		} else {
			parts.price = "Close"
		}
	}

	rule := Rule{
		Name:          key,
		Role:          role,
		Timeframe:     tf,
		Quantity:      qty,
		ConditionText: condText,
		PriceText:     parts.price,
		StopText:      parts.stop,
	}
	if rule.Condition, err = expr.Parse(condText); err != nil {
		return errors.NewConfigError(st.Name, key, "condition", err)
	}
	if rule.Price, err = expr.Parse(parts.price); err != nil {
		return errors.NewConfigError(st.Name, key, "exit price", err)
	}
	if parts.stop != "" {
		if rule.Stop, err = expr.Parse(parts.stop); err != nil {
			return errors.NewConfigError(st.Name, key, "stop-loss", err)
		}
	}

	st.RuleTexts = append(st.RuleTexts, condText, parts.price)
	if parts.stop != "" {
		st.RuleTexts = append(st.RuleTexts, parts.stop)
	}

	if role == RoleBuy {
		st.BuyRules = append(st.BuyRules, rule)
	} else {
		st.SellRules = append(st.SellRules, rule)
	}
	return nil
}

// parseAction splits "SELL, 50%" into the action and quantity fraction.
// A plain number is an absolute quantity; a percent divides by 100; the
// default quantity is 1.
func parseAction(key string) (string, float64, error) {
	action := key
	qtyText := "1"
	if idx := strings.Index(key, ","); idx >= 0 {
		action = key[:idx]
		qtyText = strings.TrimSpace(key[idx+1:])
	}
	action = strings.ToUpper(strings.TrimSpace(action))

	div := 1.0
	if strings.Contains(qtyText, "%") {
		qtyText = strings.Trim(qtyText, "% ")
		div = 100
	}
	qty, err := strconv.ParseFloat(qtyText, 64)
	if err != nil {
		return "", 0, fmt.Errorf("quantity %q: numeric value needed", qtyText)
	}
	return action, qty / div, nil
}

// walkCondition reduces a nested AND/OR tree to one expression string,
// siphoning Out/Timeframe/StopLoss entries into parts.
func walkCondition(key string, n *yaml.Node, parts *ruleParts) string {
	if n.Kind == yaml.MappingNode {
		var inputs []string
		for i := 0; i+1 < len(n.Content); i += 2 {
			sub := walkCondition(n.Content[i].Value, n.Content[i+1], parts)
			if sub != "" {
				inputs = append(inputs, sub)
			}
		}
		link := " "
		switch strings.ToUpper(key) {
		case "AND":
			link = " and "
		case "OR":
			link = " or "
		}
		if len(inputs) == 0 {
			return ""
		}
		return fmt.Sprintf("( %s )", strings.Join(inputs, link))
	}

	switch {
	case strings.Contains(key, "Out"):
		parts.price = strings.TrimSpace(n.Value)
		return ""
	case strings.Contains(key, "Timeframe"):
		parts.timeframe = strings.TrimSpace(n.Value)
		return ""
	case strings.Contains(key, "StopLoss"):
		parts.stop = strings.TrimSpace(n.Value)
		return ""
	case strings.Contains(key, "In"):
		return fmt.Sprintf("( %s )", strings.TrimSpace(n.Value))
	}
	return ""
}
