package spec

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/roach88/factdb/internal/fact"
)

// Element is a sealed interface over the values held by a Product.
// Only ReferenceElement, ProductElement, and CollectionElement implement it.
type Element interface {
	element() // Sealed
}

// ReferenceElement holds a single fact reference.
type ReferenceElement struct {
	Reference fact.Reference
}

func (ReferenceElement) element() {}

// ProductElement holds a nested product (a composite member).
type ProductElement struct {
	Product Product
}

func (ProductElement) element() {}

// CollectionElement holds an ordered list of products.
type CollectionElement struct {
	Products []Product
}

func (CollectionElement) element() {}

// Product is one result row. It binds every given and matched label to a
// reference, and every collection member of the projection to a list of
// products. Products are immutable: With returns a copy.
type Product struct {
	names    []string // sorted
	elements map[string]Element
}

// NewProduct returns a product binding each label name to its reference.
func NewProduct(bindings map[string]fact.Reference) Product {
	p := Product{elements: make(map[string]Element, len(bindings))}
	for name, ref := range bindings {
		p.elements[name] = ReferenceElement{Reference: ref}
		p.names = append(p.names, name)
	}
	slices.Sort(p.names)
	return p
}

// With returns a copy of p with name bound to el.
func (p Product) With(name string, el Element) Product {
	out := Product{elements: make(map[string]Element, len(p.elements)+1)}
	for k, v := range p.elements {
		out.elements[k] = v
	}
	out.names = slices.Clone(p.names)
	if _, exists := out.elements[name]; !exists {
		i, _ := slices.BinarySearch(out.names, name)
		out.names = slices.Insert(out.names, i, name)
	}
	out.elements[name] = el
	return out
}

// Names returns the element names in sorted order.
func (p Product) Names() []string {
	return slices.Clone(p.names)
}

// Get returns the named element.
func (p Product) Get(name string) (Element, bool) {
	el, ok := p.elements[name]
	return el, ok
}

// Reference returns the reference bound to a label.
func (p Product) Reference(name string) (fact.Reference, bool) {
	el, ok := p.elements[name].(ReferenceElement)
	return el.Reference, ok
}

// Collection returns the products of a collection member.
func (p Product) Collection(path string) ([]Product, bool) {
	el, ok := p.elements[path].(CollectionElement)
	return el.Products, ok
}

// Bindings returns the label bindings of the product.
func (p Product) Bindings() map[string]fact.Reference {
	out := make(map[string]fact.Reference)
	for name, el := range p.elements {
		if ref, ok := el.(ReferenceElement); ok {
			out[name] = ref.Reference
		}
	}
	return out
}

// Key identifies the row by its label bindings: the given and matched fact
// references. Two products with the same key describe the same row even if
// their collections differ.
func (p Product) Key() string {
	var b strings.Builder
	for _, name := range p.names {
		ref, ok := p.elements[name].(ReferenceElement)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(ref.Reference.String())
	}
	return b.String()
}

// Result materializes the projection over p.
func (p Product) Result(proj Projection) Element {
	return p.result(proj, "")
}

func (p Product) result(proj Projection, path string) Element {
	switch pr := proj.(type) {
	case FactProjection:
		if ref, ok := p.Reference(pr.Label); ok {
			return ReferenceElement{Reference: ref}
		}
		return nil
	case CompositeProjection:
		out := Product{elements: make(map[string]Element, len(pr.Members))}
		for _, m := range pr.Members {
			memberPath := m.Name
			if path != "" {
				memberPath = path + "." + m.Name
			}
			if el := p.result(m.Projection, memberPath); el != nil {
				out = out.With(m.Name, el)
			}
		}
		return ProductElement{Product: out}
	case CollectionProjection:
		children, _ := p.Collection(path)
		results := make([]Product, 0, len(children))
		for _, child := range children {
			switch el := child.Result(pr.Projection).(type) {
			case ProductElement:
				results = append(results, el.Product)
			case ReferenceElement:
				results = append(results, Product{}.With("", el))
			}
		}
		return CollectionElement{Products: results}
	default:
		return nil
	}
}

// MarshalJSON renders references as {"type","hash"} objects, nested
// products as objects, and collections as arrays. An element stored
// under the empty name is rendered in place of the product.
func (p Product) MarshalJSON() ([]byte, error) {
	if el, ok := p.elements[""]; ok && len(p.elements) == 1 {
		return json.Marshal(elementValue(el))
	}
	m := make(map[string]any, len(p.elements))
	for name, el := range p.elements {
		m[name] = elementValue(el)
	}
	return json.Marshal(m)
}

func elementValue(el Element) any {
	switch e := el.(type) {
	case ReferenceElement:
		return e.Reference
	case ProductElement:
		return e.Product
	case CollectionElement:
		if e.Products == nil {
			return []Product{}
		}
		return e.Products
	default:
		return nil
	}
}
