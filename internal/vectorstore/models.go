package vectorstore

// ChunkMetadata identifies the origin of a chunk. UserID scopes every
// retrieval query; chunks must never be fetched across users.
type ChunkMetadata struct {
	UserID       string `json:"userId"`
	DocumentName string `json:"documentName"`
	PageNumber   int    `json:"pageNumber"`
}

// Chunk is a bounded slice of document text, the unit of embedding and
// retrieval.
type Chunk struct {
	PageContent string        `json:"pageContent"`
	Metadata    ChunkMetadata `json:"metadata"`
}
