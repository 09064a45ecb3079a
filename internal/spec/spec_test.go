package spec_test

import (
	"testing"

	"allot/internal/library"
	"allot/internal/memory"
	"allot/internal/ops"
	"allot/internal/spectest"
	"allot/internal/vm"
)

type specCase struct {
	name     string
	source   string
	stdin    string
	maxSteps int64
	maxHeap  int64
	debug    bool
	expect   spectest.Expectation
}

func runCases(t *testing.T, cases []specCase) {
	t.Helper()
	for _, tc := range cases {
		for _, mode := range spectest.Modes() {
			tc, mode := tc, mode
			t.Run(tc.name+"/"+string(mode), func(t *testing.T) {
				res := spectest.Run(t, spectest.Options{
					Mode:     mode,
					Source:   tc.source,
					Stdin:    tc.stdin,
					MaxSteps: tc.maxSteps,
					MaxHeap:  tc.maxHeap,
					Debug:    tc.debug,
				})
				spectest.Assert(t, res, tc.expect)
			})
		}
	}
}

func TestBaseline(t *testing.T) {
	runCases(t, []specCase{
		{
			name: "copy_and_assert",
			source: `
	mov r1 usize(50)
	assert r1 usize(50)
	cpy r2 r1
	assert r2 usize(50)
	exit i32(512)
`,
			expect: spectest.Expectation{Exit: 512},
		},
		{
			name: "add_and_assert",
			source: `
	mov r1 usize(50)
	mov r2 usize(75)
	op + r1 r2
	assert r1 usize(125)
	exit i32(512)
`,
			expect: spectest.Expectation{Exit: 512},
		},
		{
			name: "failed_assert",
			source: `
	mov r1 usize(50)
	mov r2 usize(75)
	op + r1 r2
	assert r1 usize(999)
	exit i32(512)
`,
			expect: spectest.Expectation{Exit: vm.AssertFailureCode},
		},
		{
			name: "println",
			source: `
	mov r9 str("hi")
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "hi\n"},
		},
		{
			name: "countdown_loop",
			source: `
	mov r1 u8(3)
	mov r2 u8(0)
loop:
	cpy r9 r1
	call println
	op -- r1
	cpy r3 r1
	op != r3 r2
	jmp r3 @loop
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "3\n2\n1\n"},
		},
		{
			name: "subroutine_with_ret",
			source: `
	mov r1 u8(5)
	lea r2 @back
	push r2
	jmp _ @double
back:
	assert r1 u8(10)
	exit i32(0)
double:
	cpy r3 r1
	op + r1 r3
	ret
`,
			expect: spectest.Expectation{Exit: 0},
		},
		{
			name: "exit_from_register",
			source: `
	mov r1 i32(-3)
	exit r1
`,
			expect: spectest.Expectation{Exit: -3},
		},
		{
			name: "library_exit",
			source: `
	mov r5 i32(3)
	call exit
	exit i32(9)
`,
			expect: spectest.Expectation{Exit: 3},
		},
	})
}

func TestValues(t *testing.T) {
	runCases(t, []specCase{
		{
			name: "integer_wraps",
			source: `
	mov r9 u8(255)
	op ++ r9
	call println
	mov r9 i8(-128)
	op -- r9
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "0\n127\n"},
		},
		{
			name: "wide_integers",
			source: `
	mov r9 u128(340282366920938463463374607431768211455)
	op ++ r9
	call println
	mov r9 i128(-5)
	mov r1 i128(3)
	op * r9 r1
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "0\n-15\n"},
		},
		{
			name: "floats_print_without_exponent",
			source: `
	mov r9 f64(2.5)
	mov r1 f64(4)
	op * r9 r1
	call println
	mov r9 f32(0.1)
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "10\n0.1\n"},
		},
		{
			name: "shift_and_bits",
			source: `
	mov r9 u32(1)
	mov r1 usize(4)
	op << r9 r1
	call println
	mov r9 i16(-16)
	mov r1 usize(2)
	op >> r9 r1
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "16\n-4\n"},
		},
		{
			name: "cast_to_string_and_back",
			source: `
	mov r9 i32(42)
	cast r9 str
	mov r1 str("!")
	op + r9 r1
	call println
	mov r2 str("17")
	cast r2 u8
	assert r2 u8(17)
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "42!\n"},
		},
		{
			name: "same_kind",
			source: `
	mov r1 u8(1)
	mov r2 u8(9)
	op <> r1 r2
	assert r1 bool(true)
	mov r1 u8(1)
	mov r2 i8(1)
	op <> r1 r2
	assert r1 bool(false)
	exit i32(0)
`,
			expect: spectest.Expectation{Exit: 0},
		},
		{
			name:   "divide_by_zero",
			source: "mov r1 i32(1)\nmov r2 i32(0)\nop / r1 r2\nexit i32(0)\n",
			expect: spectest.Expectation{ErrIs: ops.ErrDivideByZero},
		},
		{
			name:   "mixed_kinds",
			source: "mov r1 i32(1)\nmov r2 i64(1)\nop + r1 r2\nexit i32(0)\n",
			expect: spectest.Expectation{ErrIs: ops.ErrType},
		},
	})
}

func TestStack(t *testing.T) {
	runCases(t, []specCase{
		{
			name: "print_amt_top_first",
			source: `
	mov r1 i32(1)
	push r1
	mov r1 i32(2)
	push r1
	mov r5 usize(2)
	call std::print_amt
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "2\n1\n"},
		},
		{
			name: "stackcpy_and_popmany",
			source: `
	mov r1 u8(7)
	pushcpy r1
	mov r1 u8(8)
	pushcpy r1
	stackcpy r2 usize(1)
	assert r2 u8(7)
	popmany usize(2)
	pop _
	exit i32(0)
`,
			expect: spectest.Expectation{ErrIs: memory.ErrEmptyFrame},
		},
		{
			name:   "pop_root_frame",
			source: "popframe\nexit i32(0)\n",
			expect: spectest.Expectation{ErrIs: memory.ErrRootFrame},
		},
		{
			name:   "takefrom_unimplemented",
			source: "pushframe false\ntakefrom\nexit i32(0)\n",
			expect: spectest.Expectation{ErrIs: vm.ErrUnimplemented},
		},
		{
			name:   "jump_needs_bool",
			source: "mov r1 u8(1)\njmp r1 addr(0)\n",
			expect: spectest.Expectation{ErrIs: vm.ErrOperandKind},
		},
		{
			name:     "step_limit",
			source:   "top:\njmp _ @top\n",
			maxSteps: 100,
			expect:   spectest.Expectation{ErrIs: vm.ErrStepLimit},
		},
		{
			name:   "runs_off_the_end",
			source: "nop\n",
			expect: spectest.Expectation{ErrIs: vm.ErrInstructionPointer},
		},
	})
}

func TestLibrary(t *testing.T) {
	runCases(t, []specCase{
		{
			name:  "read_bytes_until_eof",
			stdin: "x",
			source: `
	call read
	call println
	call read
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "120\n\n"},
		},
		{
			name:  "read_line_keeps_terminator",
			stdin: "ab\ncd\n",
			source: `
	call read_line
	call print
	call read_line
	call print
	call read_line
	call print
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "ab\ncd\n"},
		},
		{
			name:  "read_all",
			stdin: "a\nb\n",
			source: `
	call std::read_all
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "ab\n"},
		},
		{
			name: "string_helpers",
			source: `
	mov r5 str("  padded  ")
	call string::trim
	call string::len
	assert r6 usize(6)
	cpy r9 r5
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "padded\n"},
		},
		{
			name: "heap_box_roundtrip",
			source: `
	mov r5 i64(10)
	call heap::box
	cpy r20 r5
	call heap::get
	assert r6 i64(10)
	mov r6 i64(11)
	call heap::set
	call heap::take
	assert r6 i64(11)
	cpy r5 r20
	call heap::get
	exit i32(0)
`,
			expect: spectest.Expectation{ErrIs: memory.ErrHeapMissing},
		},
		{
			name:    "heap_budget",
			maxHeap: 64,
			source: `
	mov r5 str("this string is comfortably larger than the whole heap budget")
	call heap::box
	exit i32(0)
`,
			expect: spectest.Expectation{ErrContains: "max heap memory exceeded"},
		},
		{
			name:   "unknown_function",
			source: "call nope\nexit i32(0)\n",
			expect: spectest.Expectation{ErrIs: library.ErrUnknownFunction},
		},
		{
			name:   "bad_argument",
			source: "mov r5 u8(1)\ncall exit\n",
			expect: spectest.Expectation{ErrIs: library.ErrArgument},
		},
	})
}

func TestThreads(t *testing.T) {
	runCases(t, []specCase{
		{
			name: "join_hands_back_frame",
			source: `
	pushframe false
	mov r1 i32(20)
	push r1
	threadcreate @worker
	threadjoin r5
	pop r2
	assert r2 i32(22)
	exit r5
worker:
	pop r1
	mov r2 i32(2)
	op + r1 r2
	push r1
	exit i32(7)
`,
			expect: spectest.Expectation{Exit: 7},
		},
		{
			name: "threads_print_concurrently",
			source: `
	mov r1 i32(1)
	pushframe false
	pushcpy r1
	threadcreate @worker
	cpy r20 r5
	mov r1 i32(2)
	pushframe false
	pushcpy r1
	threadcreate @worker
	cpy r21 r5
	threadjoin r20
	popframe
	threadjoin r21
	popframe
	exit i32(0)
worker:
	pop r9
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "1\n2\n", StdoutMode: spectest.StdoutLines},
		},
		{
			name: "detached_thread_output_is_kept",
			source: `
	pushframe false
	threadcreate @worker
	exit i32(0)
worker:
	mov r9 str("late")
	call println
	exit i32(0)
`,
			expect: spectest.Expectation{Stdout: "late\n"},
		},
		{
			name: "detached_thread_fault_aborts",
			source: `
	pushframe false
	threadcreate @bad
	exit i32(0)
bad:
	pop r1
	exit i32(0)
`,
			expect: spectest.Expectation{Aborted: true},
		},
		{
			name: "thread_fault_aborts",
			source: `
	pushframe false
	threadcreate @bad
	threadjoin r5
	exit i32(0)
bad:
	pop r1
	exit i32(0)
`,
			expect: spectest.Expectation{ErrIs: vm.ErrThreadFault, Aborted: true},
		},
	})
}

func TestDebug(t *testing.T) {
	runCases(t, []specCase{
		{
			name:   "dbg_register",
			debug:  true,
			source: "nop\nmov r1 u8(1)\ndbg r1\nexit i32(0)\n",
			expect: spectest.Expectation{DebugContains: "[0002] R1 = u8(1)"},
		},
		{
			name:   "dump_registers",
			debug:  true,
			source: "mov r3 str(\"x\")\ndump 2\nexit i32(0)\n",
			expect: spectest.Expectation{DebugContains: "R3 = str(x)"},
		},
		{
			name:   "silent_without_debug_writer",
			source: "mov r1 u8(1)\ndbg r1\ndump 15\nexit i32(0)\n",
			expect: spectest.Expectation{},
		},
	})
}
