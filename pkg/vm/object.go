package vm

import (
	"sort"
	"sync"
	"unsafe"
)

// Field describes one own property in a shape: its name, the slot offset
// into the owning object's property block, and its attribute bits. Accessor
// fields keep a slot (holding Undefined) so offsets stay dense; the
// getter/setter values live in side maps on the object.
type Field struct {
	offset       int
	name         string
	writable     bool
	enumerable   bool
	configurable bool
	isAccessor   bool
}

func (f Field) Name() string { return f.name }

// Shape is the hidden class of a plain object: the ordered set of own
// property names with their slot offsets and attributes. Shapes form a
// transition tree rooted at RootShape; objects built through equivalent
// property-addition sequences end up sharing the same *Shape. A shape is
// never mutated once it is reachable by more than one object: divergence
// (delete, attribute redefinition) replaces the object's shape with a
// private copy instead.
type Shape struct {
	parent      *Shape
	fields      []Field
	transitions map[string]*Shape
	mu          sync.RWMutex
	version     uint32
}

// InstanceSize returns the number of inline property slots described by
// the shape. It is fixed at shape creation and identical for every object
// sharing the shape.
func (s *Shape) InstanceSize() int { return len(s.fields) }

// Fields returns the shape's field records in slot order.
func (s *Shape) Fields() []Field { return s.fields }

func (s *Shape) findField(name string) (Field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	return Field{}, false
}

// transition returns the child shape for adding the given field, creating
// and interning it on first use. The transition key encodes the attribute
// bits so that, say, an enumerable and a non-enumerable addition of the
// same name land on different shapes.
func (s *Shape) transition(fld Field) *Shape {
	key := transitionKey(fld)
	s.mu.RLock()
	next, ok := s.transitions[key]
	s.mu.RUnlock()
	if ok {
		return next
	}
	newFields := make([]Field, len(s.fields)+1)
	copy(newFields, s.fields)
	newFields[len(s.fields)] = fld
	next = &Shape{parent: s, fields: newFields, transitions: make(map[string]*Shape), version: s.version + 1}
	s.mu.Lock()
	if existing, ok := s.transitions[key]; ok {
		next = existing
	} else {
		s.transitions[key] = next
	}
	s.mu.Unlock()
	return next
}

func transitionKey(f Field) string {
	var bits [4]byte
	if f.writable {
		bits[0] = 'w'
	}
	if f.enumerable {
		bits[1] = 'e'
	}
	if f.configurable {
		bits[2] = 'c'
	}
	if f.isAccessor {
		bits[3] = 'a'
	}
	return f.name + ":" + string(bits[:])
}

// divergedCopy returns a private, untracked copy of the shape with the
// given fields. Used when an object's layout leaves the shared transition
// tree (delete, attribute change).
func (s *Shape) divergedCopy(fields []Field) *Shape {
	return &Shape{parent: s.parent, fields: fields, transitions: make(map[string]*Shape), version: s.version + 1}
}

type Object struct {
}

// PlainObject is an ordinary object with shape-described inline storage.
// properties is the slot block: raw values in shape field order.
type PlainObject struct {
	Object
	shape      *Shape
	prototype  Value
	properties []Value
	getters    map[string]Value
	setters    map[string]Value
	extensible bool
}

// Shape exposes the object's current layout descriptor.
func (o *PlainObject) Shape() *Shape { return o.shape }

// GetOwn looks up a direct (own) data property by name. Accessor
// properties report present with an Undefined value; they are never
// invoked from here.
func (o *PlainObject) GetOwn(name string) (Value, bool) {
	f, ok := o.shape.findField(name)
	if !ok {
		return Undefined, false
	}
	if f.isAccessor || f.offset >= len(o.properties) {
		return Undefined, true
	}
	return o.properties[f.offset], true
}

// GetOwnDescriptor returns the value and attribute flags for an own
// property. Returns (value, writable, enumerable, configurable, exists).
func (o *PlainObject) GetOwnDescriptor(name string) (Value, bool, bool, bool, bool) {
	f, ok := o.shape.findField(name)
	if !ok {
		return Undefined, false, false, false, false
	}
	if f.isAccessor {
		return Undefined, false, f.enumerable, f.configurable, true
	}
	var v Value = Undefined
	if f.offset < len(o.properties) {
		v = o.properties[f.offset]
	}
	return v, f.writable, f.enumerable, f.configurable, true
}

// GetOwnAccessor returns the getter/setter pair for an own accessor
// property. Returns (get, set, enumerable, configurable, exists).
func (o *PlainObject) GetOwnAccessor(name string) (Value, Value, bool, bool, bool) {
	f, ok := o.shape.findField(name)
	if !ok || !f.isAccessor {
		return Undefined, Undefined, false, false, false
	}
	var g, s Value = Undefined, Undefined
	if o.getters != nil {
		if v, ok := o.getters[name]; ok {
			g = v
		}
	}
	if o.setters != nil {
		if v, ok := o.setters[name]; ok {
			s = v
		}
	}
	return g, s, f.enumerable, f.configurable, true
}

// HasOwn reports whether an own property with the given name exists.
func (o *PlainObject) HasOwn(name string) bool {
	_, ok := o.shape.findField(name)
	return ok
}

// SetOwn sets or defines an own data property with assignment semantics.
// New properties follow the shared transition tree so equal construction
// sequences share a shape. Writes to non-writable properties are no-ops.
func (o *PlainObject) SetOwn(name string, v Value) {
	if f, ok := o.shape.findField(name); ok {
		if !f.isAccessor && f.writable {
			o.properties[f.offset] = v
		}
		return
	}
	if !o.extensible {
		return
	}
	fld := Field{offset: len(o.shape.fields), name: name, writable: true, enumerable: true, configurable: true}
	o.shape = o.shape.transition(fld)
	o.properties = append(o.properties, v)
}

// SetOwnNonEnumerable defines an own property with builtin-method
// attributes (writable, non-enumerable, configurable).
func (o *PlainObject) SetOwnNonEnumerable(name string, v Value) {
	if f, ok := o.shape.findField(name); ok {
		if !f.isAccessor && f.writable {
			o.properties[f.offset] = v
		}
		return
	}
	if !o.extensible {
		return
	}
	fld := Field{offset: len(o.shape.fields), name: name, writable: true, enumerable: false, configurable: true}
	o.shape = o.shape.transition(fld)
	o.properties = append(o.properties, v)
}

// DefineOwnProperty defines or updates an own data property with explicit
// attributes. Unspecified attributes (nil) keep their previous values for
// existing properties and default to false for new ones. Attribute changes
// diverge the object onto a private shape copy; shared shapes are never
// edited in place.
func (o *PlainObject) DefineOwnProperty(name string, value Value, writable, enumerable, configurable *bool) {
	for i, f := range o.shape.fields {
		if f.name != name {
			continue
		}
		newF := f
		fromAccessor := false
		if f.isAccessor {
			if !f.configurable {
				return
			}
			newF.isAccessor = false
			newF.writable = false
			fromAccessor = true
			delete(o.getters, name)
			delete(o.setters, name)
		}
		if !f.configurable {
			if configurable != nil && *configurable != f.configurable {
				return
			}
			if enumerable != nil && *enumerable != f.enumerable {
				return
			}
			if !f.writable && writable != nil && *writable {
				return
			}
		}
		if f.configurable || fromAccessor || f.writable {
			o.properties[f.offset] = value
		}
		if writable != nil {
			newF.writable = *writable
		}
		if enumerable != nil {
			newF.enumerable = *enumerable
		}
		if configurable != nil {
			newF.configurable = *configurable
		}
		if newF != f {
			fields := make([]Field, len(o.shape.fields))
			copy(fields, o.shape.fields)
			fields[i] = newF
			o.shape = o.shape.divergedCopy(fields)
		}
		return
	}
	if !o.extensible {
		return
	}
	fld := Field{offset: len(o.shape.fields), name: name}
	if writable != nil {
		fld.writable = *writable
	}
	if enumerable != nil {
		fld.enumerable = *enumerable
	}
	if configurable != nil {
		fld.configurable = *configurable
	}
	o.shape = o.shape.transition(fld)
	o.properties = append(o.properties, value)
}

// DefineAccessorProperty defines or updates an own accessor property.
func (o *PlainObject) DefineAccessorProperty(name string, getter Value, hasGetter bool, setter Value, hasSetter bool, enumerable, configurable *bool) {
	for i, f := range o.shape.fields {
		if f.name != name {
			continue
		}
		if !f.configurable {
			return
		}
		newF := f
		newF.isAccessor = true
		newF.writable = false
		if enumerable != nil {
			newF.enumerable = *enumerable
		}
		if configurable != nil {
			newF.configurable = *configurable
		}
		if newF != f {
			fields := make([]Field, len(o.shape.fields))
			copy(fields, o.shape.fields)
			fields[i] = newF
			o.shape = o.shape.divergedCopy(fields)
		}
		o.properties[f.offset] = Undefined
		o.setAccessorSlots(name, getter, hasGetter, setter, hasSetter)
		return
	}
	if !o.extensible {
		return
	}
	fld := Field{offset: len(o.shape.fields), name: name, isAccessor: true}
	if enumerable != nil {
		fld.enumerable = *enumerable
	}
	if configurable != nil {
		fld.configurable = *configurable
	}
	o.shape = o.shape.transition(fld)
	o.properties = append(o.properties, Undefined)
	o.setAccessorSlots(name, getter, hasGetter, setter, hasSetter)
}

func (o *PlainObject) setAccessorSlots(name string, getter Value, hasGetter bool, setter Value, hasSetter bool) {
	if o.getters == nil {
		o.getters = make(map[string]Value)
	}
	if o.setters == nil {
		o.setters = make(map[string]Value)
	}
	if hasGetter {
		o.getters[name] = getter
	}
	if hasSetter {
		o.setters[name] = setter
	}
}

// DeleteOwn removes an own property if present and configurable. The
// object leaves the shared transition tree onto a private shape with
// compacted offsets. Returns true if the property is absent afterwards.
func (o *PlainObject) DeleteOwn(name string) bool {
	f, ok := o.shape.findField(name)
	if !ok {
		return true
	}
	if !f.configurable {
		return false
	}
	newFields := make([]Field, 0, len(o.shape.fields)-1)
	for _, fld := range o.shape.fields {
		if fld.name == name {
			continue
		}
		nf := fld
		if fld.offset > f.offset {
			nf.offset = fld.offset - 1
		}
		newFields = append(newFields, nf)
	}
	newProps := make([]Value, 0, len(o.properties)-1)
	for i := range o.properties {
		if i == f.offset {
			continue
		}
		newProps = append(newProps, o.properties[i])
	}
	o.shape = o.shape.divergedCopy(newFields)
	o.properties = newProps
	if f.isAccessor {
		delete(o.getters, name)
		delete(o.setters, name)
	}
	return true
}

// OwnKeys returns enumerable own property names in insertion order.
func (o *PlainObject) OwnKeys() []string {
	keys := make([]string, 0, len(o.shape.fields))
	for _, f := range o.shape.fields {
		if f.enumerable {
			keys = append(keys, f.name)
		}
	}
	return keys
}

// OwnPropertyNames returns all own property names, including
// non-enumerable ones, in insertion order.
func (o *PlainObject) OwnPropertyNames() []string {
	names := make([]string, 0, len(o.shape.fields))
	for _, f := range o.shape.fields {
		names = append(names, f.name)
	}
	return names
}

// Get looks up a property by name, walking the prototype chain.
func (o *PlainObject) Get(name string) (Value, bool) {
	if v, ok := o.GetOwn(name); ok {
		return v, true
	}
	return protoChainGet(o.prototype, name)
}

// Has reports whether a property exists, own or inherited.
func (o *PlainObject) Has(name string) bool {
	_, ok := o.Get(name)
	return ok
}

func (o *PlainObject) GetPrototype() Value { return o.prototype }

// SetPrototype sets the object's prototype. Fails on non-extensible
// objects unless the prototype is unchanged.
func (o *PlainObject) SetPrototype(proto Value) bool {
	if proto.SameValue(o.prototype) {
		return true
	}
	if !o.extensible {
		return false
	}
	o.prototype = proto
	return true
}

func (o *PlainObject) IsExtensible() bool { return o.extensible }

// SetExtensible clears the extensible flag. Once cleared it cannot be set
// back.
func (o *PlainObject) SetExtensible(extensible bool) {
	if !extensible {
		o.extensible = false
	}
}

// DictObject is an ordinary object whose properties live out of line in a
// map: the storage mode for expando-heavy objects that never settle on a
// stable layout. Dict properties are always data properties with
// writable/enumerable/configurable attributes.
type DictObject struct {
	Object
	prototype  Value
	properties map[string]Value
	extensible bool
}

// GetOwn looks up a direct property by name.
func (d *DictObject) GetOwn(name string) (Value, bool) {
	v, ok := d.properties[name]
	if !ok {
		return Undefined, false
	}
	return v, true
}

// GetOwnDescriptor returns default data-property attributes for present
// properties.
func (d *DictObject) GetOwnDescriptor(name string) (Value, bool, bool, bool, bool) {
	if v, ok := d.properties[name]; ok {
		return v, true, true, true, true
	}
	return Undefined, false, false, false, false
}

// SetOwn sets or defines an own property.
func (d *DictObject) SetOwn(name string, v Value) {
	if _, ok := d.properties[name]; !ok && !d.extensible {
		return
	}
	d.properties[name] = v
}

// HasOwn reports whether an own property exists.
func (d *DictObject) HasOwn(name string) bool {
	_, ok := d.properties[name]
	return ok
}

// DeleteOwn deletes an own property. Returns true if deleted.
func (d *DictObject) DeleteOwn(name string) bool {
	if _, ok := d.properties[name]; ok {
		delete(d.properties, name)
		return true
	}
	return false
}

// OwnKeys returns the sorted list of own property names.
func (d *DictObject) OwnKeys() []string {
	keys := make([]string, 0, len(d.properties))
	for k := range d.properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OwnPropertyNames is an alias for OwnKeys; dict objects have no
// non-enumerable properties.
func (d *DictObject) OwnPropertyNames() []string { return d.OwnKeys() }

// Get looks up a property by name, walking the prototype chain.
func (d *DictObject) Get(name string) (Value, bool) {
	if v, ok := d.GetOwn(name); ok {
		return v, true
	}
	return protoChainGet(d.prototype, name)
}

func (d *DictObject) Has(name string) bool {
	_, ok := d.Get(name)
	return ok
}

func (d *DictObject) GetPrototype() Value { return d.prototype }

func (d *DictObject) SetPrototype(proto Value) bool {
	if proto.SameValue(d.prototype) {
		return true
	}
	if !d.extensible {
		return false
	}
	d.prototype = proto
	return true
}

func (d *DictObject) IsExtensible() bool { return d.extensible }

func (d *DictObject) SetExtensible(extensible bool) {
	if !extensible {
		d.extensible = false
	}
}

func protoChainGet(start Value, name string) (Value, bool) {
	current := start
	for current.typ != TypeNull && current.typ != TypeUndefined {
		if po := current.AsPlainObject(); po != nil {
			if v, ok := po.GetOwn(name); ok {
				return v, true
			}
			current = po.prototype
		} else if dict := current.AsDictObject(); dict != nil {
			if v, ok := dict.GetOwn(name); ok {
				return v, true
			}
			current = dict.prototype
		} else {
			break
		}
	}
	return Undefined, false
}

// DefaultObjectPrototype is the shared prototype for plain objects created
// without an explicit one. RootShape is the empty shape every object
// layout grows from.
var DefaultObjectPrototype Value
var RootShape *Shape

func init() {
	RootShape = &Shape{
		fields:      []Field{},
		transitions: make(map[string]*Shape),
	}
	protoObj := &PlainObject{prototype: Null, shape: RootShape, extensible: true}
	DefaultObjectPrototype = Value{typ: TypeObject, obj: unsafe.Pointer(protoObj)}
}

func NewObject(proto Value) Value {
	prototype := DefaultObjectPrototype
	if proto.IsObject() || proto.IsNull() {
		prototype = proto
	}
	plainObj := &PlainObject{prototype: prototype, shape: RootShape, extensible: true}
	return Value{typ: TypeObject, obj: unsafe.Pointer(plainObj)}
}

func NewDictObject(proto Value) Value {
	prototype := DefaultObjectPrototype
	if proto.IsObject() || proto.IsNull() {
		prototype = proto
	}
	dictObj := &DictObject{prototype: prototype, properties: make(map[string]Value), extensible: true}
	return Value{typ: TypeDictObject, obj: unsafe.Pointer(dictObj)}
}
