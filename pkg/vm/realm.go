package vm

import "sync/atomic"

// Realm represents an isolated execution environment. Each realm has its
// own intrinsic prototypes; values never migrate between realms, and
// functions remember the realm they were created in.
type Realm struct {
	id int64

	ObjectPrototype   Value
	FunctionPrototype Value
}

var realmCounter atomic.Int64

// NewRealm creates a realm with fresh intrinsic prototypes.
func NewRealm() *Realm {
	r := &Realm{id: realmCounter.Add(1)}
	r.ObjectPrototype = NewObject(Null)
	r.FunctionPrototype = NewObject(r.ObjectPrototype)
	return r
}

func (r *Realm) ID() int64 { return r.id }
