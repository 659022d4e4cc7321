package dynamo

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/mmynk/meshimatch/internal/models"
)

// update is one UpdateItem expression with its placeholders.
type update struct {
	Expression string
	Names      map[string]string
	Values     map[string]types.AttributeValue
}

// exprBuilder accumulates the clauses of one update expression. Placeholder
// numbering is shared through counter so expressions can be merged.
type exprBuilder struct {
	counter *int
	set     []string
	add     []string
	del     []string
	remove  []string
	names   map[string]string
	values  map[string]types.AttributeValue
}

func newExprBuilder(counter *int) *exprBuilder {
	return &exprBuilder{
		counter: counter,
		names:   make(map[string]string),
		values:  make(map[string]types.AttributeValue),
	}
}

func (b *exprBuilder) name(attr string) string {
	ph := fmt.Sprintf("#n%d", *b.counter)
	*b.counter++
	b.names[ph] = attr
	return ph
}

func (b *exprBuilder) value(v types.AttributeValue) string {
	ph := fmt.Sprintf(":v%d", *b.counter)
	*b.counter++
	b.values[ph] = v
	return ph
}

func (b *exprBuilder) empty() bool {
	return len(b.set)+len(b.add)+len(b.del)+len(b.remove) == 0
}

func (b *exprBuilder) build() update {
	var sections []string
	if len(b.set) > 0 {
		sections = append(sections, "SET "+strings.Join(b.set, ", "))
	}
	if len(b.add) > 0 {
		sections = append(sections, "ADD "+strings.Join(b.add, ", "))
	}
	if len(b.del) > 0 {
		sections = append(sections, "DELETE "+strings.Join(b.del, ", "))
	}
	if len(b.remove) > 0 {
		sections = append(sections, "REMOVE "+strings.Join(b.remove, ", "))
	}
	u := update{Expression: strings.Join(sections, " ")}
	if len(b.names) > 0 {
		u.Names = b.names
	}
	if len(b.values) > 0 {
		u.Values = b.values
	}
	return u
}

// merge folds other into b. Callers ensure the two touch disjoint paths.
func (b *exprBuilder) merge(other *exprBuilder) {
	b.set = append(b.set, other.set...)
	b.add = append(b.add, other.add...)
	b.del = append(b.del, other.del...)
	b.remove = append(b.remove, other.remove...)
	maps.Copy(b.names, other.names)
	maps.Copy(b.values, other.values)
}

// buildUpdates turns a patch into update expressions. Additions (SET, ADD) and
// removals (DELETE, REMOVE) are built separately; they share one expression unless
// both touch the members set, which DynamoDB rejects as overlapping paths.
// Removing a member also removes their ledger and profile, and removal wins over a
// SET of the same member's entry.
func buildUpdates(patch models.GroupPatch) ([]update, error) {
	counter := 0
	adds := newExprBuilder(&counter)
	removes := newExprBuilder(&counter)

	removedMembers := dedupe(patch.RemoveMembers)
	removedLikes := dedupe(append(slices.Clone(patch.RemoveLikes), removedMembers...))
	removedProfiles := dedupe(append(slices.Clone(patch.RemoveProfiles), removedMembers...))

	if patch.Name != nil {
		adds.set = append(adds.set, fmt.Sprintf("%s = %s",
			adds.name("name"), adds.value(&types.AttributeValueMemberS{Value: *patch.Name})))
	}

	for _, member := range slices.Sorted(maps.Keys(patch.SetLikes)) {
		if slices.Contains(removedLikes, member) {
			continue
		}
		ids := patch.SetLikes[member]
		if ids == nil {
			ids = []string{}
		}
		av, err := attributevalue.Marshal(ids)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ledger for %s: %w", member, err)
		}
		adds.set = append(adds.set, fmt.Sprintf("likes.%s = %s", adds.name(member), adds.value(av)))
	}

	for _, member := range slices.Sorted(maps.Keys(patch.SetProfiles)) {
		if slices.Contains(removedProfiles, member) {
			continue
		}
		p := patch.SetProfiles[member]
		av, err := attributevalue.Marshal(profileItem{Name: p.Name, PhotoURI: p.PhotoURI})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile for %s: %w", member, err)
		}
		adds.set = append(adds.set, fmt.Sprintf("memberProfiles.%s = %s", adds.name(member), adds.value(av)))
	}

	var added []string
	for _, member := range dedupe(patch.AddMembers) {
		if !slices.Contains(removedMembers, member) {
			added = append(added, member)
		}
	}
	if len(added) > 0 {
		adds.add = append(adds.add, "members "+adds.value(&types.AttributeValueMemberSS{Value: added}))
	}

	if len(removedMembers) > 0 {
		removes.del = append(removes.del, "members "+removes.value(&types.AttributeValueMemberSS{Value: removedMembers}))
	}
	for _, member := range removedLikes {
		removes.remove = append(removes.remove, "likes."+removes.name(member))
	}
	for _, member := range removedProfiles {
		removes.remove = append(removes.remove, "memberProfiles."+removes.name(member))
	}

	switch {
	case adds.empty() && removes.empty():
		return nil, nil
	case removes.empty():
		return []update{adds.build()}, nil
	case adds.empty():
		return []update{removes.build()}, nil
	case len(adds.add) > 0 && len(removes.del) > 0:
		return []update{adds.build(), removes.build()}, nil
	default:
		adds.merge(removes)
		return []update{adds.build()}, nil
	}
}

// dedupe drops empty and repeated ids, keeping first occurrences.
func dedupe(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
