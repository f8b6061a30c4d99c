package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"opcflux/internal/domain"
	"opcflux/internal/ports"
)

// rootObjectsFolder is where discovery starts when no root is configured.
const rootObjectsFolder = "i=85"

// ErrInvalidNodeID reports a discovery root that cannot be parsed.
var ErrInvalidNodeID = errors.New("bridge: invalid node id")

// DiscoverySink receives nodes as the walker finds them. Calls for the
// children of one node arrive in browse order; calls for different parents
// may interleave.
type DiscoverySink func(domain.DiscoveredNode)

// Discover walks the address space breadth-limited by depth and reports
// every reachable node to sink. depth 1 browses only the root's children;
// each extra level recurses one step further. The transport must already
// be connected.
func (b *Bridge) Discover(ctx context.Context, rootNodeID string, depth int, sink DiscoverySink) error {
	if rootNodeID == "" {
		rootNodeID = rootObjectsFolder
	}
	if _, err := parseStrictNodeID(rootNodeID); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidNodeID, rootNodeID, err)
	}
	if depth < 1 {
		depth = 1
	}

	b.mu.RLock()
	t := b.transport
	b.mu.RUnlock()
	if t == nil {
		return errors.New("bridge: not started")
	}

	w := &walker{transport: t, sink: sink}
	w.wg.Add(1)
	go w.walk(ctx, browseTask{nodeID: rootNodeID, depth: depth})
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// browseTask is one node to browse. parent is empty for the entry task, so
// nodes found directly under the walk root carry no parent; recursive tasks
// carry the browsed node's id.
type browseTask struct {
	nodeID string
	parent string
	depth  int
}

// walker fans browse calls out per subtree and keeps the first error.
type walker struct {
	transport ports.Transport
	sink      DiscoverySink

	wg sync.WaitGroup

	mu  sync.Mutex
	err error
}

func (w *walker) walk(ctx context.Context, task browseTask) {
	defer w.wg.Done()

	refs, err := w.collectPages(ctx, task)
	if err != nil {
		w.fail(err)
		return
	}
	if task.depth <= 1 {
		return
	}

	for _, ref := range refs {
		w.wg.Add(1)
		go w.walk(ctx, browseTask{nodeID: ref.NodeID, parent: ref.NodeID, depth: task.depth - 1})
	}
}

// collectPages browses one node, draining continuation points before
// returning. Each page is reported to the sink as soon as it arrives.
func (w *walker) collectPages(ctx context.Context, task browseTask) ([]ports.Reference, error) {
	page, err := w.transport.Browse(ctx, task.nodeID)
	if err != nil {
		return nil, fmt.Errorf("browse %s: %w", task.nodeID, err)
	}

	var refs []ports.Reference
	for {
		for _, ref := range page.References {
			w.emit(task, ref)
		}
		refs = append(refs, page.References...)

		if len(page.ContinuationPoint) == 0 {
			return refs, nil
		}
		page, err = w.transport.BrowseNext(ctx, page.ContinuationPoint)
		if err != nil {
			return refs, fmt.Errorf("browse next %s: %w", task.nodeID, err)
		}
	}
}

func (w *walker) emit(task browseTask, ref ports.Reference) {
	w.sink(domain.DiscoveredNode{
		NodeID:         ref.NodeID,
		Name:           ref.BrowseName,
		DisplayName:    ref.DisplayName,
		ParentNodeID:   task.parent,
		Classification: classify(ref.Class),
		IsLeafValue:    ref.Class == domain.NodeClassVariable,
	})
}

func (w *walker) fail(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

// classify maps the wire node class onto the coarse grouping the rest of
// the system understands.
func classify(c domain.NodeClass) domain.NodeClassification {
	switch c {
	case domain.NodeClassObject,
		domain.NodeClassObjectType,
		domain.NodeClassVariableType,
		domain.NodeClassReferenceType,
		domain.NodeClassDataType:
		return domain.ClassificationObject
	case domain.NodeClassVariable:
		return domain.ClassificationValue
	case domain.NodeClassView:
		return domain.ClassificationFolder
	default:
		return domain.ClassificationUnspecified
	}
}
