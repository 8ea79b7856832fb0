package types

import "testing"

func TestStructuralEquality(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     Type
		expected bool
	}{
		{"int equals int", Int, Int, true},
		{"int differs from char", Int, Char, false},
		{"pointers compare by element", NewPointer(Int), NewPointer(Int), true},
		{"pointer element mismatch", NewPointer(Int), NewPointer(Char), false},
		{"nested pointers", NewPointer(NewPointer(Int)), NewPointer(NewPointer(Int)), true},
		{"arrays compare length", &Array{Elem: Int, Len: 4}, &Array{Elem: Int, Len: 4}, true},
		{"array length mismatch", &Array{Elem: Int, Len: 4}, &Array{Elem: Int, Len: 5}, false},
		{"array is not pointer", &Array{Elem: Int, Len: 4}, NewPointer(Int), false},
		{
			"function signatures",
			&Func{Params: []Type{Int, Char}, Return: Void},
			&Func{Params: []Type{Int, Char}, Return: Void},
			true,
		},
		{
			"function return mismatch",
			&Func{Params: []Type{Int}, Return: Int},
			&Func{Params: []Type{Int}, Return: Void},
			false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.expected {
				t.Errorf("%s.Equal(%s) = %v, want %v", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestSizes(t *testing.T) {
	testCases := []struct {
		typ      Type
		expected int
	}{
		{Int, 4},
		{Char, 1},
		{Void, 0},
		{NewPointer(Char), 4},
		{&Array{Elem: Int, Len: 10}, 40},
		{&Array{Elem: Char, Len: 10}, 10},
	}
	for _, tc := range testCases {
		if got := tc.typ.Size(); got != tc.expected {
			t.Errorf("%s.Size() = %d, want %d", tc.typ, got, tc.expected)
		}
	}
}

func TestDecay(t *testing.T) {
	arr := &Array{Elem: Char, Len: 8}
	decayed := Decay(arr)
	if !decayed.Equal(NewPointer(Char)) {
		t.Errorf("array should decay to char*, got %s", decayed)
	}
	if Decay(Int) != Int {
		t.Error("scalars must pass through Decay unchanged")
	}
}

func TestWider(t *testing.T) {
	if Wider(Char, Char) != Char {
		t.Error("char op char stays char")
	}
	if Wider(Char, Int) != Int || Wider(Int, Char) != Int {
		t.Error("int wins over char")
	}
}
