package catalog

import (
	"bytes"
	_ "embed"
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/tripguide/internal/errors"
	"github.com/myrjola/tripguide/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed flows.yaml
var defaultFlows []byte

type catalogDoc struct {
	Flows []flowDoc `yaml:"flows"`
}

type flowDoc struct {
	Type      string        `yaml:"type"`
	Title     string        `yaml:"title"`
	Questions []questionDoc `yaml:"questions"`
}

type questionDoc struct {
	ID          string        `yaml:"id"`
	Type        string        `yaml:"type"`
	Prompt      string        `yaml:"prompt"`
	Options     []string      `yaml:"options"`
	Required    bool          `yaml:"required"`
	Min         float64       `yaml:"min"`
	Max         float64       `yaml:"max"`
	Match       string        `yaml:"match"`
	VisibleWhen *predicateDoc `yaml:"visible_when"`
}

type predicateDoc struct {
	Equals    *conditionDoc  `yaml:"equals"`
	NotEquals *conditionDoc  `yaml:"not_equals"`
	In        *conditionDoc  `yaml:"in"`
	NotIn     *conditionDoc  `yaml:"not_in"`
	All       []predicateDoc `yaml:"all"`
}

type conditionDoc struct {
	Question string   `yaml:"question"`
	Value    string   `yaml:"value"`
	Values   []string `yaml:"values"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultFlows))
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) (_ *Catalog, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open catalog", slog.String("path", path))
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close catalog", slog.String("path", path)))
		}
	}()
	c, err := Load(f)
	if err != nil {
		return nil, errors.Wrap(err, "load catalog", slog.String("path", path))
	}
	return c, nil
}

// Load decodes a YAML catalog and validates it with [New].
func Load(r io.Reader) (*Catalog, error) {
	var doc catalogDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode catalog yaml")
	}

	flows := make([]Flow, 0, len(doc.Flows))
	for _, fd := range doc.Flows {
		flow := Flow{
			Type:      models.FlowType(fd.Type),
			Title:     fd.Title,
			Questions: make([]Question, 0, len(fd.Questions)),
		}
		for _, qd := range fd.Questions {
			q := Question{
				ID:         qd.ID,
				Type:       QuestionType(qd.Type),
				Prompt:     qd.Prompt,
				Options:    qd.Options,
				Required:   qd.Required,
				Visibility: nil,
				Min:        qd.Min,
				Max:        qd.Max,
				Dimension:  qd.Match,
			}
			if qd.VisibleWhen != nil {
				p, err := qd.VisibleWhen.predicate()
				if err != nil {
					return nil, &IntegrityError{Flow: flow.Type, QuestionID: qd.ID, Reason: err.Error()}
				}
				q.Visibility = p
			}
			flow.Questions = append(flow.Questions, q)
		}
		flows = append(flows, flow)
	}

	return New(flows...)
}

func (d predicateDoc) predicate() (Predicate, error) {
	var (
		set int
		p   Predicate
	)
	if d.Equals != nil {
		set++
		p = Equals(d.Equals.Question, d.Equals.Value)
	}
	if d.NotEquals != nil {
		set++
		p = NotEquals(d.NotEquals.Question, d.NotEquals.Value)
	}
	if d.In != nil {
		set++
		p = ValueIn(d.In.Question, d.In.Values...)
	}
	if d.NotIn != nil {
		set++
		p = NotIn(d.NotIn.Question, d.NotIn.Values...)
	}
	if d.All != nil {
		set++
		subs := make([]Predicate, 0, len(d.All))
		for _, sd := range d.All {
			sub, err := sd.predicate()
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		p = All(subs...)
	}
	if set != 1 {
		return nil, errors.New("visible_when needs exactly one of equals, not_equals, in, not_in or all")
	}
	return p, nil
}
