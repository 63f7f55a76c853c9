package models

import "time"

// Kind identifies which entity collection a record belongs to.
type Kind string

const (
	KindFolder    Kind = "folder"
	KindDocument  Kind = "document"
	KindCharacter Kind = "character"
)

// RootID is the explicit parent reference for entities placed at the top of
// the project tree. An empty parent means the reference was never assigned.
const RootID = "::root"

// IsRoot reports whether a parent reference resolves to the tree root.
func IsRoot(parentID string) bool {
	return parentID == "" || parentID == RootID
}

// ParseKind maps user input such as "doc" or "char" to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "folder", "dir", "f":
		return KindFolder, true
	case "document", "doc", "d":
		return KindDocument, true
	case "character", "char", "c":
		return KindCharacter, true
	}
	return "", false
}

// Folder groups documents, characters and other folders.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Document is a markdown page. Its body is stored separately and loaded on demand.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FolderID  string    `json:"folderId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Character is a profile page for a person in the story.
type Character struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	FolderID  string    `json:"folderId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Attribute is a free-form key/value pair on a character profile.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Profile holds the editable fields of a character.
type Profile struct {
	Age         string      `json:"age"`
	Nationality string      `json:"nationality"`
	Sexuality   string      `json:"sexuality"`
	Height      string      `json:"height"`
	Attributes  []Attribute `json:"attributes"`
	ImagePath   string      `json:"image"`
}

// Clone returns a deep copy of the profile.
func (p Profile) Clone() Profile {
	out := p
	if p.Attributes != nil {
		out.Attributes = make([]Attribute, len(p.Attributes))
		copy(out.Attributes, p.Attributes)
	}
	return out
}

// Listing is a full snapshot of a project's entity collections.
type Listing struct {
	Folders    []Folder    `json:"folders"`
	Documents  []Document  `json:"docs"`
	Characters []Character `json:"characters"`
}

// SearchHit is one full-text search match.
type SearchHit struct {
	DocumentID string `json:"documentId"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
}

// Snapshot is a point-in-time copy of a document body.
type Snapshot struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	Note       string    `json:"note"`
	Markdown   string    `json:"markdown,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Project is a registered project directory.
type Project struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
}
