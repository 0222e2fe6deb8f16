// Package geoflow is the public surface of the library: pipeline and task
// orchestration, CRS reconciliation, geometry validation, provenance
// tracking, and spatial I/O. The implementation lives under internal/; this
// package re-exports the stable pieces.
package geoflow

import (
	"github.com/banshee-data/geoflow/internal/crs"
	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/geoio"
	"github.com/banshee-data/geoflow/internal/pipeline"
	"github.com/banshee-data/geoflow/internal/provenance"
	"github.com/banshee-data/geoflow/internal/spatial"
	"github.com/banshee-data/geoflow/internal/validate"
)

// Data model.
type Dataset = geodata.Dataset
type Feature = geodata.Feature

// NewDataset builds a dataset from features in the given CRS.
var NewDataset = geodata.New

// Tasks and pipelines.
type Task = pipeline.Task
type TaskConfig = pipeline.TaskConfig
type TransformFunc = pipeline.TransformFunc
type CallOption = pipeline.CallOption
type Pipeline[T any] = pipeline.Pipeline[T]
type PipelineConfig = pipeline.Config
type PipelineFunc[T any] = pipeline.Func[T]
type Params = pipeline.Params
type Result[T any] = pipeline.Result[T]
type GeographicOperationError = pipeline.GeographicOperationError

var (
	NewTask       = pipeline.NewTask
	WithTargetCRS = pipeline.WithTargetCRS
)

// NewPipeline wraps fn as a named pipeline.
func NewPipeline[T any](cfg PipelineConfig, fn PipelineFunc[T], opts ...pipeline.Option) (*Pipeline[T], error) {
	return pipeline.New(cfg, fn, opts...)
}

// Reference systems.
type CRSManager = crs.Manager
type CRSMismatchError = crs.MismatchError
type UnknownCRSError = crs.UnknownCRSError

var (
	ErrMissingCRS = crs.ErrMissingCRS
	NewCRSManager = crs.NewManager
	NormalizeCRS  = crs.Normalize
	Reproject     = crs.Reproject
)

// Validation.
type GeometryValidator = validate.GeometryValidator
type ValidationReport = validate.Report
type ValidationOptions = validate.Options
type InvalidGeometryError = validate.InvalidGeometryError
type InvalidFeature = validate.InvalidFeature

const (
	RepairMakeValid = validate.MethodMakeValid
	RepairBuffer    = validate.MethodBuffer
)

var (
	ErrUnknownRepairMethod = validate.ErrUnknownRepairMethod
	NewGeometryValidator   = validate.NewGeometryValidator
	ValidateGeometry       = validate.ValidateGeometry
)

// Provenance.
type Tracker = provenance.Tracker
type OperationRecord = provenance.OperationRecord
type RunSummary = provenance.Summary

const (
	OpTypeTask     = provenance.OpTypeTask
	OpTypePipeline = provenance.OpTypePipeline
)

var (
	NewTracker  = provenance.NewTracker
	LoadTracker = provenance.Load
)

// Spatial operations.
var (
	Buffer = spatial.Buffer
	Clip   = spatial.Clip
	Area   = spatial.Area
)

// I/O.
type UnsupportedFormatError = geoio.UnsupportedFormatError
type LoadOption = geoio.LoadOption

var (
	Load                   = geoio.Load
	Save                   = geoio.Save
	WithValidation         = geoio.WithValidation
	WithAutoFix            = geoio.WithAutoFix
	ReadEmbeddedProvenance = geoio.ReadEmbeddedProvenance
)
