package engine

import (
	"fmt"
)

// =============================================================================
// CLASSIFICATION - Status tag per record
// =============================================================================

// Tag is the classification of a record. The same tag drives highlighting in
// a renderer and grouping/filtering in aggregations.
type Tag string

// TagNone is the tag of a record whose status is blank.
const TagNone Tag = ""

// Classifier maps a record onto its tag.
type Classifier interface {
	Classify(rec Record) Tag
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(rec Record) Tag

func (f ClassifierFunc) Classify(rec Record) Tag { return f(rec) }

// IdentityClassifier uses the status field's enum value as the tag.
type IdentityClassifier struct {
	Field string
}

func (c IdentityClassifier) Classify(rec Record) Tag {
	v := rec.Value(c.Field)
	if v.Kind != KindText {
		return TagNone
	}
	return Tag(v.Text)
}

// TransitionGuard may veto a tag change on update. Returning nil allows it.
type TransitionGuard func(from, to Tag) error

// ClassificationEngine tags records and, when a guard is installed, checks
// tag changes. Without a guard any tag may replace any other.
type ClassificationEngine struct {
	classifier Classifier
	guard      TransitionGuard
	tags       []Tag
}

// NewClassificationEngine defaults to the identity mapping over the schema's
// status field. The tag domain is the status field's enum domain.
func NewClassificationEngine(schema *Schema, classifier Classifier, guard TransitionGuard) *ClassificationEngine {
	if classifier == nil {
		classifier = IdentityClassifier{Field: schema.StatusField()}
	}
	var tags []Tag
	if domain, ok := schema.Domain(schema.StatusField()); ok {
		for _, v := range domain {
			tags = append(tags, Tag(v))
		}
	}
	return &ClassificationEngine{classifier: classifier, guard: guard, tags: tags}
}

// Classify sets rec.Tag.
func (c *ClassificationEngine) Classify(rec *Record) {
	rec.Tag = c.classifier.Classify(*rec)
}

// CheckTransition runs the guard, if any, for a change from -> to.
func (c *ClassificationEngine) CheckTransition(from, to Tag) error {
	if c.guard == nil || from == to {
		return nil
	}
	if err := c.guard(from, to); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", ErrTransitionRejected, from, to, err)
	}
	return nil
}

// Tags is the tag domain in declaration order.
func (c *ClassificationEngine) Tags() []Tag { return c.tags }

// ForbidFrom returns a guard that rejects any change away from the given
// terminal tags.
func ForbidFrom(terminal ...Tag) TransitionGuard {
	set := make(map[Tag]bool, len(terminal))
	for _, t := range terminal {
		set[t] = true
	}
	return func(from, to Tag) error {
		if set[from] {
			return fmt.Errorf("%s is terminal", from)
		}
		return nil
	}
}
