package store

// ModelBlob is a persisted, encoded model.
type ModelBlob struct {
	UID   string
	Name  string
	Codec string // codec the blob was written with
	Blob  []byte
	// Size is the blob length in bytes, filled by ListModels.
	Size      int64
	CreatedTs int64
	UpdatedTs int64
}

// UpsertModel specifies the data for saving a model. Saving under an existing
// name replaces the blob and keeps the original creation time.
type UpsertModel struct {
	UID   string
	Name  string
	Codec string
	Blob  []byte
}
