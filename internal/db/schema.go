package db

// SchemaSQL defines the catalog tables. Property bags and comparison details
// are stored as flexible objects; the engine validates their shape on read.
const SchemaSQL = `
    -- ==========================================================================
    -- MATERIAL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS material SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON material TYPE string;
    DEFINE FIELD IF NOT EXISTS material_type ON material TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS properties ON material TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created ON material TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated ON material TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS material_type_idx ON material FIELDS material_type;

    -- ==========================================================================
    -- COMPARISON PRESET TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS comparison_preset SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON comparison_preset TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON comparison_preset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS weights ON comparison_preset TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS material_type ON comparison_preset TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS include_paths ON comparison_preset TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS exclude_paths ON comparison_preset TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS is_default ON comparison_preset TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_at ON comparison_preset TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON comparison_preset TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS preset_type_idx ON comparison_preset FIELDS material_type, is_default;

    -- ==========================================================================
    -- COMPARISON RESULT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS comparison_result SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS material_ids ON comparison_result TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS overall_similarity ON comparison_result TYPE float;
    DEFINE FIELD IF NOT EXISTS property_comparisons ON comparison_result TYPE array<object> FLEXIBLE;
    -- Must REMOVE then DEFINE so FLEXIBLE applies to existing databases
    REMOVE FIELD IF EXISTS property_comparisons.* ON comparison_result;
    DEFINE FIELD property_comparisons.* ON comparison_result TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS preset_id ON comparison_result TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON comparison_result TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS result_materials_idx ON comparison_result FIELDS material_ids;
    DEFINE INDEX IF NOT EXISTS result_created_idx ON comparison_result FIELDS created_at;
`
