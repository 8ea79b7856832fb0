package asm

import (
	"strings"
	"testing"
)

func TestFormat_Lines(t *testing.T) {
	testCases := []struct {
		name     string
		line     Line
		expected string
	}{
		{"no args", Op0("nop"), "  nop\n"},
		{"register move", Op2("mov", R0, Reg("r4")), "  mov r0, r4\n"},
		{"immediate", Op2("mov", R0, Imm(42)), "  mov r0, #42\n"},
		{"literal pool", Op2("ldr", R0, LitImm(1000000)), "  ldr r0, =1000000\n"},
		{"label literal", Op2("ldr", R0, Lit("counter")), "  ldr r0, =counter\n"},
		{"memory offset", Op2("str", R0, Mem("fp", -8)), "  str r0, [fp, #-8]\n"},
		{"memory no offset", Op2("ldr", R0, Mem("r4", 0)), "  ldr r0, [r4]\n"},
		{"register list", Op1("push", List("r4", "fp", "lr")), "  push {r4, fp, lr}\n"},
		{"three operands", Op3("add", R0, R1, Imm(4)), "  add r0, r1, #4\n"},
		{"branch", Op1("b", Ref(".Lf_end")), "  b .Lf_end\n"},
		{"label", Label(".Lf_end"), ".Lf_end:\n"},
		{"comment only", Comment("t0 = const 1"), "  @ t0 = const 1\n"},
		{"op with comment", Op2("mov", R0, Imm(1)).WithComment("ret"), "  mov r0, #1 @ ret\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var sb strings.Builder
			formatLine(&sb, tc.line)
			if sb.String() != tc.expected {
				t.Errorf("got %q, want %q", sb.String(), tc.expected)
			}
		})
	}
}

func TestFormat_Program(t *testing.T) {
	p := Program{
		Functions: []Function{{
			Name: "main",
			Lines: []Line{
				Op1("push", List("fp", "lr")),
				Op2("mov", R0, Imm(0)),
				Op1("pop", List("fp", "pc")),
			},
		}},
		Globals: []GlobalVariable{{Label: "counter", Size: 4}},
	}

	var sb strings.Builder
	Format(&sb, p)
	out := sb.String()

	for _, want := range []string{
		".syntax unified",
		".global main",
		".type main, %function",
		"main:",
		".bss",
		".comm counter, 4, 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
