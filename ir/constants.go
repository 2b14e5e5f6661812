package ir

// ConstantValue is a literal value materialized as a permanent object during
// module setup. Arrays nest arbitrarily.
type ConstantValue interface {
	constantValue()
}

type IntValue int64

type FloatValue float64

type StringValue string

type ArrayValue []ConstantValue

func (IntValue) constantValue()    {}
func (FloatValue) constantValue()  {}
func (StringValue) constantValue() {}
func (ArrayValue) constantValue()  {}
