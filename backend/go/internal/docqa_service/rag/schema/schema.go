package schema

const (
	// MetadataKeyDocumentID ties a chunk to the stored document it came from.
	// The value is the document's ID rendered as a decimal string.
	MetadataKeyDocumentID = "document_id"
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "filename"
	// MetadataKeyPage is the 1-based page number for paged formats such as PDF.
	MetadataKeyPage = "page"
	// MetadataKeySheet is the sheet name for spreadsheet sources.
	MetadataKeySheet = "sheet"
	// MetadataKeySource records which loader produced the unit (e.g. ".pdf").
	MetadataKeySource = "source"
	// MetadataKeyChunkIndex is the position of a chunk within its unit.
	MetadataKeyChunkIndex = "chunk_index"
)

// Document is the central data structure representing a piece of text and its associated data.
// Loaders emit one Document per text unit (a page, a whole file); the splitter turns those
// into chunk Documents, which are then embedded and written to the vector index.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string

	// Text is the string content of the document chunk.
	Text string

	// Embedding is the vector representation of the text.
	Embedding []float32

	// Metadata holds arbitrary data about the document.
	Metadata map[string]interface{}
}

// SearchResult is a chunk returned by a similarity search together with its score.
// Higher scores are more similar.
type SearchResult struct {
	Document *Document
	Score    float32
}

// Filter restricts search and delete to records whose metadata equals every given value.
// An empty filter matches everything.
type Filter map[string]string

// DocumentFilter returns the filter selecting all chunks of one document.
func DocumentFilter(documentID string) Filter {
	return Filter{MetadataKeyDocumentID: documentID}
}

// Matches reports whether the metadata satisfies every equality in the filter.
func (f Filter) Matches(md map[string]interface{}) bool {
	for k, want := range f {
		got, ok := md[k]
		if !ok {
			return false
		}
		if s, isString := got.(string); !isString || s != want {
			return false
		}
	}
	return true
}

// CopyMetadata returns a shallow copy of md that is never nil.
func CopyMetadata(md map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(md)+2)
	for k, v := range md {
		out[k] = v
	}
	return out
}
