package prim

import "github.com/ianhorswill/step/runtime"

// All returns every primitive task this package defines, for package
// module to register by name when building a fresh Module (spec §6 "Module
// load API").
func All() []*runtime.Task {
	return []*runtime.Task{
		EqualsTask, NotEqualsTask,
		LessThanTask, GreaterThanTask, LessOrEqualTask, GreaterOrEqualTask,
		PlusTask, MinusTask, TimesTask, DivTask, NegTask,
		CallTask,
		WriteTask, WriteVerbatimTask, ParagraphTask,
		HeadTailTask, LengthTask, MemberTask, FeatureGetTask, FeatureSetTask,
		CalledFromTask, PreviousCallTask,
	}
}
