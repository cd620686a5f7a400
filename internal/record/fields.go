package record

import (
	"strings"
	"time"
)

// Fields is the flat set of values rendered into one notification.
// Every field holds either the extracted value or its default.
type Fields struct {
	ActivityName    string
	DeliverableName string
	ActivityLink    string
	ApprovalLink    string
	ProjectName     string
	WorkPackage     string
	ActivityID      string
	Uploader        string
	UploadedAt      string
	Target          string
}

// Mapping names the database property backing each field.
type Mapping struct {
	ActivityName    string
	DeliverableName string
	ActivityLink    string
	ApprovalLink    string
	ProjectName     string
	WorkPackage     string
	ActivityID      string
	Uploader        string
	UploadedAt      string
	Target          string
}

// DefaultMapping matches the column names of the deliverable approval database.
func DefaultMapping() Mapping {
	return Mapping{
		ActivityName:    "Activities Name",
		DeliverableName: "Deliverable Name",
		ActivityLink:    "Link Activities",
		ApprovalLink:    "Link Approval",
		ProjectName:     "Project Name",
		WorkPackage:     "Work Package Name",
		ActivityID:      "ID Activities",
		Uploader:        "Uploader.Name (As)",
		UploadedAt:      "Upload.Date",
		Target:          "ID Telegram (Us)",
	}
}

// WithDefaults fills empty names from DefaultMapping.
func (m Mapping) WithDefaults() Mapping {
	d := DefaultMapping()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Mapping{
		ActivityName:    pick(m.ActivityName, d.ActivityName),
		DeliverableName: pick(m.DeliverableName, d.DeliverableName),
		ActivityLink:    pick(m.ActivityLink, d.ActivityLink),
		ApprovalLink:    pick(m.ApprovalLink, d.ApprovalLink),
		ProjectName:     pick(m.ProjectName, d.ProjectName),
		WorkPackage:     pick(m.WorkPackage, d.WorkPackage),
		ActivityID:      pick(m.ActivityID, d.ActivityID),
		Uploader:        pick(m.Uploader, d.Uploader),
		UploadedAt:      pick(m.UploadedAt, d.UploadedAt),
		Target:          pick(m.Target, d.Target),
	}
}

// Extractor turns records into Fields. The zero value uses DefaultMapping and
// renders timestamps in their own offset.
type Extractor struct {
	Mapping  Mapping
	Location *time.Location
}

// ProjectNameDefault is the fallback for a missing project name.
const ProjectNameDefault = "-"

// Extract never fails: missing or malformed properties become defaults.
func (x Extractor) Extract(r Record) Fields {
	m := x.Mapping.WithDefaults()
	prop := func(name string) Property {
		if r.Properties == nil {
			return Property{}
		}
		return r.Properties[name]
	}
	return Fields{
		ActivityName:    PropertyText(prop(m.ActivityName), NoData),
		DeliverableName: PropertyText(prop(m.DeliverableName), NoData),
		ActivityLink:    FormulaValue(prop(m.ActivityLink), NoData),
		ApprovalLink:    FormulaValue(prop(m.ApprovalLink), NoData),
		ProjectName:     PropertyText(prop(m.ProjectName), ProjectNameDefault),
		WorkPackage:     PropertyText(prop(m.WorkPackage), NoData),
		ActivityID:      PropertyText(prop(m.ActivityID), NoData),
		Uploader:        PropertyText(prop(m.Uploader), NoData),
		UploadedAt:      DateValueText(prop(m.UploadedAt), x.Location, NoData),
		Target:          strings.TrimSpace(PropertyText(prop(m.Target), NoData)),
	}
}

// TargetOf resolves only the delivery address of r.
func (x Extractor) TargetOf(r Record) string {
	m := x.Mapping.WithDefaults()
	if r.Properties == nil {
		return NoData
	}
	return strings.TrimSpace(PropertyText(r.Properties[m.Target], NoData))
}
