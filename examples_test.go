package lockfree

import "fmt"

func ExampleStack() {
	s := NewStack[string]()
	s.Push("a")
	s.Push("b")
	v, _ := s.Pop()
	fmt.Println(v)
	// Output: b
}

func ExampleQueue() {
	q := NewQueue[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	for {
		v, ok := q.Dequeue()
		if !ok {
			break
		}
		fmt.Print(v, " ")
	}
	fmt.Println()
	// Output: 1 2 3
}

func ExampleRing() {
	r := NewRing[int](4)
	fmt.Println(r.Offer(10), r.Offer(20), r.Offer(30), r.Offer(40))
	v, _ := r.Poll()
	fmt.Println(v)
	// Output: true true true false
	// 10
}

func ExampleSet() {
	s := NewSet(func(a, b int) bool { return a < b })
	fmt.Println(s.Add(2), s.Add(1), s.Add(2))
	fmt.Println(s.Keys())
	// Output: true true false
	// [1 2]
}

func ExampleSkipListMap_Put() {
	m := NewMap[int, string](func(a, b int) bool { return a < b })
	m.Put(1, "one")
	m.Put(2, "two")
	fmt.Println(m.Len())
	// Output: 2
}

func ExampleSkipListMap_Get() {
	m := NewMap[int, string](func(a, b int) bool { return a < b })
	m.Put(1, "one")
	m.Put(2, "two")
	val, ok := m.Get(1)
	fmt.Printf("%s %t\n", val, ok)
	// Output: one true
}

func ExampleSkipListMap_Delete() {
	m := NewMap[int, string](func(a, b int) bool { return a < b })
	m.Put(1, "one")
	m.Put(2, "two")
	val, ok := m.Delete(1)
	fmt.Printf("%s %t\n", val, ok)
	fmt.Println(m.Len())
	// Output: one true
	// 1
}

func ExampleSkipListMap_Iterator() {
	m := NewMap[int, string](func(a, b int) bool { return a < b })
	m.Put(3, "three")
	m.Put(1, "one")
	m.Put(2, "two")
	it := m.Iterator()
	for it.Next() {
		fmt.Printf("%d:%s ", it.Key(), it.Value())
	}
	fmt.Println()
	// Output: 1:one 2:two 3:three
}

func ExampleSkipListMap_SeekGE() {
	m := NewMap[int, string](func(a, b int) bool { return a < b })
	m.Put(1, "one")
	m.Put(3, "three")
	m.Put(5, "five")
	it := m.SeekGE(2)
	for it.Valid() {
		fmt.Printf("%d:%s ", it.Key(), it.Value())
		it.Next()
	}
	fmt.Println()
	// Output: 3:three 5:five
}
