package listenable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvokeNotifiesEveryListenerInOrder(t *testing.T) {
	l := New[*int]()
	a, b := 0, 0
	l.Add(&a)
	l.Add(&b)
	require.Equal(t, 2, l.Len())

	order := 0
	l.Invoke(func(target *int) {
		order++
		*target = order
	})

	require.Equal(t, 1, a)
	require.Equal(t, 2, b)
}

func TestPanicFromOneListenerDoesNotStopTheRest(t *testing.T) {
	l := New[string]()
	l.Add("panics")
	l.Add("survives")

	var seen []string
	l.Invoke(func(name string) {
		if name == "panics" {
			panic(name)
		}
		seen = append(seen, name)
	})

	require.Equal(t, []string{"survives"}, seen)
}
