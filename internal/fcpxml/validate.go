package fcpxml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// StructureError names the first missing link in the fixed element chain.
type StructureError struct {
	Reason string
}

func (e *StructureError) Error() string { return "invalid fcpxml structure: " + e.Reason }

type chain struct {
	XMLName   xml.Name
	Resources *struct{} `xml:"resources"`
	Library   *struct {
		Event *struct {
			Project *struct {
				Sequence *struct {
					Spine *struct{} `xml:"spine"`
				} `xml:"sequence"`
			} `xml:"project"`
		} `xml:"event"`
	} `xml:"library"`
}

// ValidateStructure re-parses a document and checks that the
// fcpxml/resources/library/event/project/sequence/spine chain is present.
func ValidateStructure(doc string) error {
	var c chain
	dec := xml.NewDecoder(strings.NewReader(doc))
	if err := dec.Decode(&c); err != nil {
		return &StructureError{Reason: fmt.Sprintf("xml parse error: %v", err)}
	}
	switch {
	case c.XMLName.Local != "fcpxml":
		return &StructureError{Reason: fmt.Sprintf("root element must be 'fcpxml', got '%s'", c.XMLName.Local)}
	case c.Resources == nil:
		return &StructureError{Reason: "missing 'resources' element"}
	case c.Library == nil:
		return &StructureError{Reason: "missing 'library' element"}
	case c.Library.Event == nil:
		return &StructureError{Reason: "missing 'event' element in library"}
	case c.Library.Event.Project == nil:
		return &StructureError{Reason: "missing 'project' element in event"}
	case c.Library.Event.Project.Sequence == nil:
		return &StructureError{Reason: "missing 'sequence' element in project"}
	case c.Library.Event.Project.Sequence.Spine == nil:
		return &StructureError{Reason: "missing 'spine' element in sequence"}
	}
	return nil
}
