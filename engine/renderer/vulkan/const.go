package vulkan

/**
 * @brief Max recycled primary command buffers kept by the primary pool
 * @todo TODO: make configurable
 */
const PRIMARY_POOL_FREE_LIMIT int = 8
