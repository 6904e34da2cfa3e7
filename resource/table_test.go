package resource

import (
	"sync"
	"testing"
)

type testObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

type dropCounter struct{ drops *int }

func (d dropCounter) Drop() { *d.drops++ }

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok || val != "test" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok = table.GetTyped(h, 1); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok = table.GetTyped(h, 2); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove should fail")
	}
}

func TestUnifiedTable_StaleHandle(t *testing.T) {
	table := NewTable()

	h1 := table.Insert(1, "first")
	table.Remove(h1)
	h2 := table.Insert(1, "second")

	if uint32(h1) != uint32(h2) {
		t.Fatalf("expected slot reuse: %x vs %x", h1, h2)
	}
	if h1 == h2 {
		t.Fatal("reused slot must carry a new generation")
	}
	if _, ok := table.Get(h1); ok {
		t.Fatal("stale handle resolved")
	}
	if _, ok := table.Remove(h1); ok {
		t.Fatal("stale handle removed a live value")
	}
	if v, ok := table.Get(h2); !ok || v != "second" {
		t.Fatalf("Get(h2) = %v, %v", v, ok)
	}
}

func TestUnifiedTable_ZeroHandle(t *testing.T) {
	table := NewTable()
	if _, ok := table.Get(0); ok {
		t.Fatal("handle 0 must be invalid")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("handle 0 must be invalid")
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(1, "test")
	table.Remove(h)

	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventCreated || obs.events[0].Handle != h {
		t.Errorf("first event = %+v", obs.events[0])
	}
	if obs.events[1].Type != EventDropped || obs.events[1].TypeID != 1 {
		t.Errorf("second event = %+v", obs.events[1])
	}

	table.Unsubscribe(obs)
	table.Insert(1, "quiet")
	if len(obs.events) != 2 {
		t.Fatal("Unsubscribe did not stop notifications")
	}
}

func TestUnifiedTable_DrainDoesNotDrop(t *testing.T) {
	table := NewTable()
	drops := 0
	table.Insert(1, dropCounter{&drops})
	table.Insert(1, dropCounter{&drops})

	values := table.Drain()
	if len(values) != 2 {
		t.Fatalf("Drain returned %d values", len(values))
	}
	if drops != 0 {
		t.Fatalf("Drain ran %d destructors", drops)
	}
	if table.Len() != 0 {
		t.Fatalf("Len after Drain = %d", table.Len())
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()
	drops := 0
	table.Insert(1, dropCounter{&drops})
	table.Insert(2, "plain")

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if drops != 1 {
		t.Fatalf("Close ran %d destructors, want 1", drops)
	}
	if h := table.Insert(1, "late"); h != 0 {
		t.Fatal("Insert after Close should return 0")
	}
}

func TestUnifiedTable_Concurrent(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := table.Insert(1, i)
			if v, ok := table.Get(h); !ok || v != i {
				t.Errorf("Get(%d) = %v, %v", i, v, ok)
			}
			table.Remove(h)
		}(i)
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Fatalf("Len = %d", table.Len())
	}
}

func TestTyped(t *testing.T) {
	table := NewTable()
	strs := NewTyped[string](table, 1)
	ints := NewTyped[int](table, 2)

	hs := strs.Insert("a")
	hi := ints.Insert(7)

	if v, ok := strs.Get(hs); !ok || v != "a" {
		t.Errorf("strs.Get = %v, %v", v, ok)
	}
	if _, ok := strs.Get(hi); ok {
		t.Error("typed view resolved a foreign type")
	}
	if _, ok := ints.Remove(hs); ok {
		t.Error("typed Remove took a foreign type")
	}
	if v, ok := ints.Remove(hi); !ok || v != 7 {
		t.Errorf("ints.Remove = %v, %v", v, ok)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d", table.Len())
	}
}
