package xkeylock

import (
	"fmt"
	"reflect"
)

// Key 是锁的规范化 key。
//
// 两个 Key 相等当且仅当它们按 [SingleKey]/[CompositeKey] 的规范化规则
// 映射到同一个值。Key 可作为 map key 使用。
type Key struct {
	v any
}

// 规范化哨兵与内部表示。
type (
	// nilKey 表示 "nil Single key" 的规范化哨兵。
	nilKey struct{}
	// emptyKey 表示 "零个 key 的 Composite" 的规范化哨兵。
	emptyKey struct{}
	// pairKey 是 Composite 的右折叠表示：(a, b, c) → {a, {b, c}}。
	// 逐元素、顺序敏感的结构相等由 Go 的 struct 相等语义直接给出。
	pairKey struct {
		head any
		tail any
	}
	// identKey 按身份（而非值）包装不可直接比较的引用类值。
	identKey struct {
		typ reflect.Type
		ptr uintptr
	}
)

// SingleKey 把任意值规范化为 Single key。
//
// nil 映射到规范化哨兵。slice/map/func/chan 按身份包装。
// 无身份可用的不可比较值返回 [ErrUncomparableKey]。
func SingleKey(v any) (Key, error) {
	c, err := canonical(v)
	if err != nil {
		return Key{}, err
	}
	return Key{v: c}, nil
}

// CompositeKey 把一组有序值规范化为 Composite key。
//
// 零个值映射到规范化哨兵；单个值退化为 [SingleKey]；
// 多个值构成顺序敏感的元组，逐元素按 [SingleKey] 规则规范化。
func CompositeKey(vs ...any) (Key, error) {
	switch len(vs) {
	case 0:
		return Key{v: emptyKey{}}, nil
	case 1:
		return SingleKey(vs[0])
	}
	head, err := canonical(vs[0])
	if err != nil {
		return Key{}, err
	}
	tail, err := CompositeKey(vs[1:]...)
	if err != nil {
		return Key{}, err
	}
	return Key{v: pairKey{head: head, tail: tail.v}}, nil
}

// canonical 把单个值映射到规范化的可比较表示。
func canonical(v any) (any, error) {
	if v == nil {
		return nilKey{}, nil
	}
	// 已规范化的 Key 作为元素传入时直接解包，避免双重包装。
	if k, ok := v.(Key); ok {
		if k.v == nil {
			return nilKey{}, nil
		}
		return k.v, nil
	}
	t := reflect.TypeOf(v)
	if t.Comparable() {
		return v, nil
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		// 引用类值按身份锁定，对应 "对数组对象本身加锁" 的语义。
		return identKey{typ: t, ptr: reflect.ValueOf(v).Pointer()}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUncomparableKey, v)
	}
}

// String 返回 key 的调试表示。
func (k Key) String() string {
	return keyString(k.v)
}

// hashString 返回用于分片哈希的字符串表示。
// 顶层附带动态类型，降低不同类型同形值落入同一分片的概率；
// 分片选择不要求无碰撞，正确性只依赖 map 的相等语义。
func (k Key) hashString() string {
	return fmt.Sprintf("%T\x00%s", k.v, keyString(k.v))
}

func keyString(v any) string {
	switch x := v.(type) {
	case nilKey:
		return "<nil>"
	case emptyKey:
		return "<empty>"
	case pairKey:
		return "(" + keyString(x.head) + ", " + keyString(x.tail) + ")"
	case identKey:
		return fmt.Sprintf("%v@%#x", x.typ, x.ptr)
	default:
		return fmt.Sprintf("%v", v)
	}
}
