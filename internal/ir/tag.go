// Package ir defines the tagged node data model shared by every pass:
// types, values, instructions, terminators and declarations, plus the
// Module/Function/BasicBlock abstractions built from them.
package ir

// Tag identifies the variant a Node holds. Tags partition into five
// categories; Category reports which one a given Tag belongs to.
type Tag uint16

// Category partitions the Tag space.
type Category uint8

const (
	CatType Category = iota
	CatValue
	CatInstruction
	CatTerminator
	CatDeclaration
)

const (
	// --- Types ---
	TagIntType Tag = iota
	TagFloatType
	TagBoolType
	TagPtrType
	TagArrType
	TagPackType // SIMD lane-packed type
	TagRecordType
	TagFnType
	TagJoinPointType
	TagQualifiedType // Qualified{inner, uniform}

	// --- Values ---
	TagParam
	TagFnAddr
	TagIntLit
	TagFloatLit
	TagBoolLit
	TagUndef
	TagNullPtr

	// --- Instructions ---
	TagCall
	TagPrimOp
	TagLoad
	TagStore
	TagLocalAlloc
	TagStackAlloc
	TagLea
	TagMemcpy
	TagReinterpretCast
	TagConversion
	TagComment
	TagDebugPrintf
	TagPushValueStack
	TagPopValueStack
	TagGetStackSize
	TagSetStackSize
	TagExtInstr // vendor extended instruction (e.g. ShadyOpDefaultJoinPoint)

	// --- Terminators ---
	TagReturn
	TagJump
	TagBranch
	TagSwitch
	TagIf
	TagMatch
	TagLoop
	TagMergeSelection
	TagMergeContinue
	TagMergeBreak
	TagTailCall
	TagJoin
	TagControl
	TagUnreachable

	// --- Declarations ---
	TagFunction
	TagGlobalVariable
	TagConstant
	TagNominalType
	TagBasicBlock // an Abstraction that is a legal jump target
)

var categoryOf = map[Tag]Category{
	TagIntType: CatType, TagFloatType: CatType, TagBoolType: CatType,
	TagPtrType: CatType, TagArrType: CatType, TagPackType: CatType,
	TagRecordType: CatType, TagFnType: CatType, TagJoinPointType: CatType,
	TagQualifiedType: CatType,

	TagParam: CatValue, TagFnAddr: CatValue, TagIntLit: CatValue,
	TagFloatLit: CatValue, TagBoolLit: CatValue, TagUndef: CatValue,
	TagNullPtr: CatValue,

	TagCall: CatInstruction, TagPrimOp: CatInstruction, TagLoad: CatInstruction,
	TagStore: CatInstruction, TagLocalAlloc: CatInstruction, TagStackAlloc: CatInstruction,
	TagLea: CatInstruction, TagMemcpy: CatInstruction, TagReinterpretCast: CatInstruction,
	TagConversion: CatInstruction, TagComment: CatInstruction, TagDebugPrintf: CatInstruction,
	TagPushValueStack: CatInstruction, TagPopValueStack: CatInstruction,
	TagGetStackSize: CatInstruction, TagSetStackSize: CatInstruction,
	TagExtInstr: CatInstruction,

	TagReturn: CatTerminator, TagJump: CatTerminator, TagBranch: CatTerminator,
	TagSwitch: CatTerminator, TagIf: CatTerminator, TagMatch: CatTerminator,
	TagLoop: CatTerminator, TagMergeSelection: CatTerminator, TagMergeContinue: CatTerminator,
	TagMergeBreak: CatTerminator, TagTailCall: CatTerminator, TagJoin: CatTerminator,
	TagControl: CatTerminator, TagUnreachable: CatTerminator,

	TagFunction: CatDeclaration, TagGlobalVariable: CatDeclaration,
	TagConstant: CatDeclaration, TagNominalType: CatDeclaration,
	TagBasicBlock: CatDeclaration,
}

var tagNames = map[Tag]string{
	TagIntType: "IntType", TagFloatType: "FloatType", TagBoolType: "BoolType",
	TagPtrType: "PtrType", TagArrType: "ArrType", TagPackType: "PackType",
	TagRecordType: "RecordType", TagFnType: "FnType", TagJoinPointType: "JoinPointType",
	TagQualifiedType: "QualifiedType",

	TagParam: "Param", TagFnAddr: "FnAddr", TagIntLit: "IntLit",
	TagFloatLit: "FloatLit", TagBoolLit: "BoolLit", TagUndef: "Undef",
	TagNullPtr: "NullPtr",

	TagCall: "Call", TagPrimOp: "PrimOp", TagLoad: "Load", TagStore: "Store",
	TagLocalAlloc: "LocalAlloc", TagStackAlloc: "StackAlloc", TagLea: "Lea",
	TagMemcpy: "Memcpy", TagReinterpretCast: "ReinterpretCast",
	TagConversion: "Conversion", TagComment: "Comment", TagDebugPrintf: "DebugPrintf",
	TagPushValueStack: "PushValueStack", TagPopValueStack: "PopValueStack",
	TagGetStackSize: "GetStackSize", TagSetStackSize: "SetStackSize",
	TagExtInstr: "ExtInstr",

	TagReturn: "Return", TagJump: "Jump", TagBranch: "Branch", TagSwitch: "Switch",
	TagIf: "If", TagMatch: "Match", TagLoop: "Loop", TagMergeSelection: "MergeSelection",
	TagMergeContinue: "MergeContinue", TagMergeBreak: "MergeBreak", TagTailCall: "TailCall",
	TagJoin: "Join", TagControl: "Control", TagUnreachable: "Unreachable",

	TagFunction: "Function", TagGlobalVariable: "GlobalVariable",
	TagConstant: "Constant", TagNominalType: "NominalType", TagBasicBlock: "BasicBlock",
}

// Category reports which of the five partitions a tag belongs to.
func (t Tag) Category() Category { return categoryOf[t] }

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return "UnknownTag"
}

func (c Category) String() string {
	switch c {
	case CatType:
		return "Type"
	case CatValue:
		return "Value"
	case CatInstruction:
		return "Instruction"
	case CatTerminator:
		return "Terminator"
	case CatDeclaration:
		return "Declaration"
	default:
		return "UnknownCategory"
	}
}
