package entities

// Owner is a local entity that requested a transcode. Each owner type
// supplies its own kind tag and primary key so a job can point back at it.
type Owner interface {
	OwnerKind() string
	OwnerKey() string
}

// OwnerRef is a detached owner reference, used when only the tag and key are known.
type OwnerRef struct {
	Kind string `json:"kind"`
	Key  string `json:"key"`
}

func (o OwnerRef) OwnerKind() string { return o.Kind }

func (o OwnerRef) OwnerKey() string { return o.Key }
