package stackjson

import (
	"net/netip"
	"time"
)

type item struct {
	ID    int      `json:"id"`
	Tags  []string `json:"tags"`
	Child *item    `json:"child"`
}

type scalars struct {
	B     bool
	I     int
	I8    int8
	I16   int16
	I32   int32
	I64   int64
	U     uint
	U8    uint8
	U16   uint16
	U32   uint32
	U64   uint64
	F32   float32
	F64   float64
	S     string
	Bytes []byte
	Any   any
	P     *int
	Addr  netip.Addr
	When  time.Time
}

type point struct {
	X int `json:"x"`
}

type grid struct {
	Cells [][][]point `json:"cells"`
}

type base struct {
	Kind string `json:"kind"`
}

type Meta struct {
	Version int `json:"version"`
}

type derived struct {
	base
	*Meta
	Name   string `json:"name"`
	hidden int
}

// 同名时外层字段优先
type shadowed struct {
	base
	Kind string `json:"kind"`
}

type node struct {
	Value int   `json:"value"`
	Next  *node `json:"next"`
}

type level int

const (
	levelDebug level = iota
	levelInfo
	levelWarn
)

type event struct {
	Level level  `json:"level"`
	Msg   string `json:"msg"`
}

type camel struct {
	ID       int
	URLValue string
	Name     string
	Tagged   string `json:"Tagged_Name"`
	Skipped  string `json:"-"`
}

type fixed struct {
	Triple [3]int `json:"triple"`
}

// stack 不是可追加的容器，通过 SequenceAdapter 读写。
type stack struct {
	items []string
}

type withStack struct {
	Stack stack `json:"stack"`
}
