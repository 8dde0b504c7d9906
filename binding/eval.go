package qbinding

import (
	"context"
	"math"
	"reflect"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// evaluator is a sandboxed Lua state evaluating the expressions of one
// ExpressionBinding. Only the base, string and math libraries are opened.
type evaluator struct {
	L        *lua.LState
	timeout  time.Duration
	builtins map[string]bool
}

func newEvaluator(timeout time.Duration) *evaluator {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	L.SetGlobal("lerp", L.NewFunction(func(L *lua.LState) int {
		a, b, t := L.CheckNumber(1), L.CheckNumber(2), L.CheckNumber(3)
		L.Push(a + (b-a)*t)
		return 1
	}))
	L.SetGlobal("clamp", L.NewFunction(func(L *lua.LState) int {
		v, lo, hi := float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3))
		L.Push(lua.LNumber(math.Max(math.Min(v, hi), lo)))
		return 1
	}))
	L.SetGlobal("saturate", L.NewFunction(func(L *lua.LState) int {
		v := float64(L.CheckNumber(1))
		L.Push(lua.LNumber(math.Max(0, math.Min(v, 1))))
		return 1
	}))

	e := &evaluator{L: L, timeout: timeout, builtins: make(map[string]bool)}
	globals := L.Get(lua.GlobalsIndex).(*lua.LTable)
	globals.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			e.builtins[string(ks)] = true
		}
	})
	return e
}

func (e *evaluator) compile(expr string) (*lua.LFunction, error) {
	return e.L.LoadString("return " + expr)
}

func (e *evaluator) call(fn *lua.LFunction) (result interface{}, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()
	e.L.SetContext(ctx)
	defer e.L.RemoveContext()

	top := e.L.GetTop()
	defer e.L.SetTop(top)
	e.L.Push(fn)
	if err := e.L.PCall(0, 1, nil); err != nil {
		return nil, err
	}
	return fromLua(e.L.Get(-1)), nil
}

func (e *evaluator) set(name string, value interface{}) {
	e.L.SetGlobal(name, e.toLua(value))
}

func (e *evaluator) close() {
	e.L.Close()
}

func (e *evaluator) toLua(value interface{}) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return v
	case lua.LGFunction:
		return e.L.NewFunction(v)
	case func(L *lua.LState) int:
		return e.L.NewFunction(v)
	case func(...float64) float64:
		return e.L.NewFunction(func(L *lua.LState) int {
			args := make([]float64, L.GetTop())
			for i := range args {
				args[i] = float64(L.CheckNumber(i + 1))
			}
			L.Push(lua.LNumber(v(args...)))
			return 1
		})
	case bool:
		return lua.LBool(v)
	case string:
		return lua.LString(v)
	}
	if f, ok := numeric(value); ok {
		return lua.LNumber(f)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		t := e.L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, e.toLua(rv.Index(i).Interface()))
		}
		return t
	}
	return lua.LString(stringify(value))
}

// fromLua converts a result to Go. Integral numbers become int64.
func fromLua(lv lua.LValue) interface{} {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return nil
	}
	return lv.String()
}
