package domain

// NodeClass mirrors the OPC UA node class bit values.
type NodeClass uint32

const (
	NodeClassObject        NodeClass = 1
	NodeClassVariable      NodeClass = 2
	NodeClassMethod        NodeClass = 4
	NodeClassObjectType    NodeClass = 8
	NodeClassVariableType  NodeClass = 16
	NodeClassReferenceType NodeClass = 32
	NodeClassDataType      NodeClass = 64
	NodeClassView          NodeClass = 128
)

// NodeClassification buckets a node class for presentation purposes.
type NodeClassification string

const (
	ClassificationObject NodeClassification = "OBJECT"
	ClassificationValue  NodeClassification = "VALUE"
	ClassificationFolder NodeClassification = "FOLDER"
	// ClassificationUnspecified marks classes outside the typed set; the
	// consumer applies its own default.
	ClassificationUnspecified NodeClassification = ""
)

// DiscoveredNode is one entry of a discovery walk. It is transient: produced
// for the sink callback and not retained by the bridge.
type DiscoveredNode struct {
	NodeID         string
	Name           string
	DisplayName    string
	ParentNodeID   string // empty for nodes emitted by the entry browse
	Classification NodeClassification
	IsLeafValue    bool
}
